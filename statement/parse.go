package statement

import (
	"regexp"
	"strings"
)

var (
	directiveRe = regexp.MustCompile(`(?m)^[ \t]*--[ \t]*name[ \t]*:`)
	nameRe      = regexp.MustCompile(`^\s*--\s*name\s*:\s*(.*?)\s*$`)
	docRe       = regexp.MustCompile(`^\s*--\s?(.*?)\s*$`)
)

// Descriptor is a parsed statement, rewritten for one dialect.
// It is immutable once returned by Parse.
type Descriptor struct {
	Name     string   `msgpack:"name"`
	Declared string   `msgpack:"declared"`
	Doc      string   `msgpack:"doc,omitempty"`
	Kind     Kind     `msgpack:"kind"`
	SQL      string   `msgpack:"sql"`
	Params   []string `msgpack:"params,omitempty"`
	Binding  Binding  `msgpack:"binding"`
	Source   string   `msgpack:"source,omitempty"`
	Line     int      `msgpack:"line,omitempty"`
}

// Names returns the distinct parameter names in order of first use.
func (d *Descriptor) Names() []string {
	seen := make(map[string]struct{}, len(d.Params))
	names := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			names = append(names, p)
		}
	}
	return names
}

// Options parameterizes parsing with the target dialect.
type Options struct {
	// Markers rewrites placeholders. Nil keeps them as written.
	Markers Markers
	// Returning is applied to InsertReturning statements.
	Returning Returning
	// Quoting delimits literals when comments and placeholders are found.
	Quoting Quoting
	// Source names the text in errors and descriptors.
	Source string
}

// Block is one statement's slice of a source text.
type Block struct {
	Text string
	Line int // 1-based line of the directive within the source
}

// Split segments text into blocks, each starting at a "-- name:" directive.
// Text before the first directive is dropped when it holds only blank
// space and comments, either "--" lines or "/* */" blocks (a license
// header); anything else there is a MissingName error.
func Split(text string) ([]Block, error) {
	locs := directiveRe.FindAllStringIndex(text, -1)
	preamble := text
	if len(locs) > 0 {
		preamble = text[:locs[0][0]]
	}
	if n := firstContent(preamble); n > 0 {
		return nil, &ParseError{Kind: MissingName, Line: n, Message: "statement does not start with a name directive"}
	}
	var (
		blocks = make([]Block, 0, len(locs))
		line   = 1
		prev   = 0
	)
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		line += strings.Count(text[prev:loc[0]], "\n")
		prev = loc[0]
		blocks = append(blocks, Block{Text: text[loc[0]:end], Line: line})
	}
	return blocks, nil
}

// ParseAll splits text and parses every block. The first error aborts the
// whole text and no descriptors are returned.
func ParseAll(text string, opts Options) ([]*Descriptor, error) {
	blocks, err := Split(text)
	if err != nil {
		err.(*ParseError).Source = opts.Source
		return nil, err
	}
	stmts := make([]*Descriptor, 0, len(blocks))
	for _, b := range blocks {
		d, err := ParseBlock(b, opts)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, d)
	}
	return stmts, nil
}

// Parse parses a single statement block.
func Parse(text string, opts Options) (*Descriptor, error) {
	return ParseBlock(Block{Text: text, Line: 1}, opts)
}

// ParseBlock parses b into a Descriptor.
func ParseBlock(b Block, opts Options) (*Descriptor, error) {
	text := strings.TrimLeft(b.Text, " \t\r\n")
	line := b.Line + strings.Count(b.Text[:len(b.Text)-len(text)], "\n")
	lines := strings.Split(text, "\n")
	fail := func(kind ErrorKind, name, msg string) error {
		return &ParseError{Kind: kind, Source: opts.Source, Line: line, Name: name, Message: msg}
	}

	m := nameRe.FindStringSubmatch(lines[0])
	if m == nil {
		return nil, fail(MissingName, "", "statement does not start with a name directive")
	}
	token := m[1]
	kind, name, err := Classify(token)
	if err != nil {
		pe := err.(*ParseError)
		pe.Source, pe.Line = opts.Source, line
		return nil, pe
	}

	rest := lines[1:]
	var docs []string
	for len(rest) > 0 {
		dm := docRe.FindStringSubmatch(rest[0])
		if dm == nil {
			break
		}
		docs = append(docs, dm[1])
		rest = rest[1:]
	}
	// "--" comments are cut before lines are joined, so a trailing comment
	// cannot swallow the lines after it.
	body := make([]string, 0, len(rest))
	lit := literal{quoting: opts.Quoting}
	for _, l := range rest {
		l = strings.TrimRight(lit.stripComment(l), " \t\r")
		if strings.TrimSpace(l) != "" {
			body = append(body, l)
		}
	}
	sql := strings.TrimSpace(strings.Join(body, " "))
	if sql == "" {
		return nil, fail(EmptyBody, token, "statement has no SQL body")
	}

	d := &Descriptor{
		Name:     name,
		Declared: declared(token, kind),
		Doc:      strings.TrimSpace(strings.Join(docs, "\n")),
		Kind:     kind,
		Source:   opts.Source,
		Line:     line,
	}
	if opts.Markers != nil {
		d.Binding = opts.Markers.Binding()
	}
	// Scripts run verbatim and take no parameters.
	if kind == Script {
		d.SQL = sql
		return d, nil
	}
	d.SQL, d.Params = RewriteQuoted(sql, opts.Markers, opts.Quoting)
	if kind == InsertReturning {
		d.SQL = opts.Returning.Apply(d.SQL)
	}
	return d, nil
}
