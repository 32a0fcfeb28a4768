// Package statement parses annotated SQL into statement descriptors.
//
// A source text is a sequence of blocks, each introduced by a name
// directive and optional documentation comments:
//
//	-- name: get-user-by-id
//	-- Returns one user.
//	SELECT * FROM users WHERE id = :id
//
// The marker at the end of the name selects the Kind:
//
//	(none)  Select
//	!       InsertUpdateDelete
//	<!      InsertReturning
//	*!      InsertUpdateDeleteMany
//	#       Script
//
// Hyphens in the name are folded to underscores, so the statement above is
// named get_user_by_id. Placeholders of the form :name are rewritten by a
// Markers implementation supplied by the target dialect; PositionalMarkers
// such as Question and Dollar consume one argument per occurrence, while
// NamedMarkers such as Pyformat and AtSign embed the parameter name.
package statement
