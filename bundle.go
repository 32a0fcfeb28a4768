package namedsql

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/namedsql/statement"
)

// BundleVersion is the version of the bundle format written by WriteBundle.
const BundleVersion = 1

// bundle is a precompiled registry: statements already rewritten for one
// dialect, so it can be loaded without parsing.
type bundle struct {
	Version int           `msgpack:"version"`
	Dialect string        `msgpack:"dialect"`
	Entries []bundleEntry `msgpack:"entries"`
}

type bundleEntry struct {
	Namespace []string              `msgpack:"namespace,omitempty"`
	Statement *statement.Descriptor `msgpack:"statement"`
}

// WriteBundle writes the statements of qs, rewritten for the dialect tag,
// to w.
func WriteBundle(w io.Writer, tag string, qs *Queries) error {
	b := bundle{Version: BundleVersion, Dialect: tag}
	err := qs.walk(nil, func(ns []string, _ string, q *Query) error {
		b.Entries = append(b.Entries, bundleEntry{Namespace: ns, Statement: q.Descriptor()})
		return nil
	})
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(w).Encode(&b); err != nil {
		return fmt.Errorf("namedsql: write bundle: %w", err)
	}
	return nil
}

// ReadBundle reads a bundle written by WriteBundle. Statements are bound to
// the adapter registered under the bundle's dialect tag, or to the adapter
// given with WithAdapter.
func ReadBundle(r io.Reader, opts ...Option) (*Queries, error) {
	var b bundle
	if err := msgpack.NewDecoder(r).Decode(&b); err != nil {
		return nil, NewLoadError("", fmt.Errorf("read bundle: %w", err))
	}
	if b.Version != BundleVersion {
		return nil, NewLoadError("", fmt.Errorf("read bundle: unsupported version %d", b.Version))
	}
	l, err := NewLoader(b.Dialect, opts...)
	if err != nil {
		return nil, err
	}
	qs := NewQueries()
	for _, e := range b.Entries {
		if e.Statement == nil || !e.Statement.Kind.IsValid() {
			return nil, NewLoadError("", fmt.Errorf("read bundle: invalid entry in %v", e.Namespace))
		}
		qs.ensure(e.Namespace).add(NewQuery(e.Statement, l.adapter))
	}
	return qs, nil
}
