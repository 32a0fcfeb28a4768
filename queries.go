package namedsql

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/syssam/namedsql/dialect"
)

// Queries is a registry of queries keyed by name, with nested namespaces
// keyed by directory name. A query in a namespace is addressed by its
// dotted path, e.g. "users.get_by_id". The cursor variant of a select
// resolves as "users.get_by_id_cursor" but is not listed by Available.
//
// Queries is safe for concurrent use. Registering a name that already
// exists at the same level replaces it.
type Queries struct {
	mu         sync.RWMutex
	queries    map[string]*Query
	namespaces map[string]*Queries
}

// NewQueries returns an empty registry.
func NewQueries() *Queries {
	return &Queries{
		queries:    make(map[string]*Query),
		namespaces: make(map[string]*Queries),
	}
}

// Register adds q under name.
func (qs *Queries) Register(name string, q *Query) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.queries[name] = q
}

// RegisterNamespace adds child under name.
func (qs *Queries) RegisterNamespace(name string, child *Queries) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.namespaces[name] = child
}

// add registers queries under their own names.
func (qs *Queries) add(qq ...*Query) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	for _, q := range qq {
		qs.queries[q.Name()] = q
	}
}

// query resolves a name at this level, falling back to the cursor variant
// of a select.
func (qs *Queries) query(name string) (*Query, bool) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	if q, ok := qs.queries[name]; ok {
		return q, true
	}
	if base, ok := strings.CutSuffix(name, CursorSuffix); ok {
		if q, ok := qs.queries[base]; ok && q.CursorVariant() != nil {
			return q.CursorVariant(), true
		}
	}
	return nil, false
}

// Available returns the sorted paths of every query in the registry and
// its namespaces.
func (qs *Queries) Available() []string {
	var paths []string
	_ = qs.walk(nil, func(ns []string, name string, _ *Query) error {
		paths = append(paths, joinPath(ns, name))
		return nil
	})
	slices.Sort(paths)
	return slices.Compact(paths)
}

// Len returns the number of queries in the registry and its namespaces.
func (qs *Queries) Len() int {
	return len(qs.Available())
}

// Lookup returns the query at the dotted path.
func (qs *Queries) Lookup(path string) (*Query, error) {
	cur := qs
	rest := path
	for {
		head, tail, nested := strings.Cut(rest, ".")
		if !nested {
			q, ok := cur.query(head)
			if !ok {
				return nil, dialect.NewUsageError(path, "no such query")
			}
			return q, nil
		}
		child, ok := cur.Namespace(head)
		if !ok {
			return nil, dialect.NewUsageError(path, "no such namespace %q", head)
		}
		cur, rest = child, tail
	}
}

// Namespace returns the child registry name.
func (qs *Queries) Namespace(name string) (*Queries, bool) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	child, ok := qs.namespaces[name]
	return child, ok
}

// Namespaces returns the sorted names of the direct child registries.
func (qs *Queries) Namespaces() []string {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return slices.Sorted(maps.Keys(qs.namespaces))
}

// Call looks up the query at path and calls it.
func (qs *Queries) Call(ctx context.Context, conn dialect.Conn, path string, args ...any) (any, error) {
	q, err := qs.Lookup(path)
	if err != nil {
		return nil, err
	}
	return q.Call(ctx, conn, args...)
}

// Walk calls fn for every query with its dotted path, names before
// namespaces and each level in sorted order. Walk stops at the first error
// fn returns.
func (qs *Queries) Walk(fn func(path string, q *Query) error) error {
	return qs.walk(nil, func(ns []string, name string, q *Query) error {
		return fn(joinPath(ns, name), q)
	})
}

func (qs *Queries) walk(ns []string, fn func(ns []string, name string, q *Query) error) error {
	qs.mu.RLock()
	names := slices.Sorted(maps.Keys(qs.queries))
	queries := make([]*Query, len(names))
	for i, n := range names {
		queries[i] = qs.queries[n]
	}
	children := slices.Sorted(maps.Keys(qs.namespaces))
	nested := make([]*Queries, len(children))
	for i, n := range children {
		nested[i] = qs.namespaces[n]
	}
	qs.mu.RUnlock()

	for i, q := range queries {
		if err := fn(ns, names[i], q); err != nil {
			return err
		}
	}
	for i, child := range nested {
		if err := child.walk(append(slices.Clip(ns), children[i]), fn); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(ns []string, name string) string {
	if len(ns) == 0 {
		return name
	}
	return strings.Join(ns, ".") + "." + name
}
