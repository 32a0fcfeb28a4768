// Package gen generates Go source holding the SQL of a loaded registry, one
// string constant per statement, so statements can be embedded and
// referenced by compile-checked names.
package gen

import (
	"fmt"
	"go/token"
	"io"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/syssam/namedsql"
)

// DefaultPackage is the package name of generated files.
const DefaultPackage = "queries"

// Config holds the generator options.
type Config struct {
	// Package is the name of the generated package.
	Package string
	// Dialect is noted in the file header.
	Dialect string
	// Map names the generated map from query path to SQL. Empty omits it.
	Map string
}

// Option configures the generator.
type Option func(*Config)

// WithPackage sets the generated package name.
func WithPackage(name string) Option {
	return func(c *Config) {
		c.Package = name
	}
}

// WithDialect records the dialect the SQL was rewritten for.
func WithDialect(tag string) Option {
	return func(c *Config) {
		c.Dialect = tag
	}
}

// WithMap sets the name of the generated path-to-SQL map.
func WithMap(name string) Option {
	return func(c *Config) {
		c.Map = name
	}
}

// Generate builds the file for qs. Constant names are the camel-cased query
// paths; two paths that camel-case to the same name are an error.
func Generate(qs *namedsql.Queries, opts ...Option) (*jen.File, error) {
	cfg := &Config{Package: DefaultPackage, Map: "Statements"}
	for _, opt := range opts {
		opt(cfg)
	}
	if !token.IsIdentifier(cfg.Package) {
		return nil, fmt.Errorf("gen: invalid package name %q", cfg.Package)
	}

	type entry struct {
		path, ident string
		q           *namedsql.Query
	}
	var (
		entries []entry
		seen    = make(map[string]string)
	)
	err := qs.Walk(func(path string, q *namedsql.Query) error {
		ident := ConstName(path)
		if prev, ok := seen[ident]; ok {
			return fmt.Errorf("gen: %q and %q both map to %s", prev, path, ident)
		}
		seen[ident] = path
		entries = append(entries, entry{path: path, ident: ident, q: q})
		return nil
	})
	if err != nil {
		return nil, err
	}

	f := jen.NewFile(cfg.Package)
	f.HeaderComment("Code generated by namedsql. DO NOT EDIT.")
	if cfg.Dialect != "" {
		f.PackageComment(fmt.Sprintf("Package %s holds SQL statements rewritten for %s.", cfg.Package, cfg.Dialect))
	}

	defs := make([]jen.Code, 0, len(entries))
	for _, e := range entries {
		d := e.q.Descriptor()
		var c jen.Statement
		c.Comment(fmt.Sprintf("%s is the %s statement %q.", e.ident, d.Kind, e.path)).Line()
		if d.Doc != "" {
			c.Comment("").Line()
			for _, l := range strings.Split(d.Doc, "\n") {
				c.Comment(l).Line()
			}
		}
		if len(d.Params) > 0 {
			c.Comment("").Line()
			c.Comment("Parameters: " + strings.Join(d.Names(), ", ")).Line()
		}
		c.Id(e.ident).Op("=").Lit(d.SQL)
		defs = append(defs, &c)
	}
	if len(defs) > 0 {
		f.Const().Defs(defs...)
	}

	if cfg.Map != "" {
		f.Commentf("%s maps every query path to its SQL.", cfg.Map)
		f.Var().Id(cfg.Map).Op("=").Map(jen.String()).String().Values(jen.DictFunc(func(d jen.Dict) {
			for _, e := range entries {
				d[jen.Lit(e.path)] = jen.Id(e.ident)
			}
		}))
	}
	return f, nil
}

// Write generates the file for qs and renders it to w.
func Write(w io.Writer, qs *namedsql.Queries, opts ...Option) error {
	f, err := Generate(qs, opts...)
	if err != nil {
		return err
	}
	if err := f.Render(w); err != nil {
		return fmt.Errorf("gen: render: %w", err)
	}
	return nil
}

// ConstName returns the exported constant name of a query path.
func ConstName(path string) string {
	name := inflect.Camelize(strings.ReplaceAll(path, ".", "_"))
	if !token.IsIdentifier(name) || !token.IsExported(name) {
		name = "Q" + name
	}
	return name
}
