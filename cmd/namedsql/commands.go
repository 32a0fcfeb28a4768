package main

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/syssam/namedsql"
	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/gen"
	"github.com/syssam/namedsql/statement"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the queries found under the configured path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			qs, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			var infos []queryInfo
			err = qs.Walk(func(path string, q *namedsql.Query) error {
				infos = append(infos, newQueryInfo(path, q, false))
				return nil
			})
			if err != nil {
				return err
			}
			if a.cfg.Format == "text" {
				formatQueriesText(cmd.OutOrStdout(), infos)
				return nil
			}
			return writeStructured(cmd.OutOrStdout(), a.cfg.Format, infos)
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <query>",
		Short: "Print a query's rewritten SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qs, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			q, err := qs.Lookup(args[0])
			if err != nil {
				return err
			}
			info := newQueryInfo(args[0], q, true)
			if a.cfg.Format == "text" {
				formatQueryText(cmd.OutOrStdout(), info)
				return nil
			}
			return writeStructured(cmd.OutOrStdout(), a.cfg.Format, info)
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Parse every file and report the first error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			qs, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "ok: %d queries, %d namespaces (%s)\n",
				qs.Len(), len(qs.Namespaces()), a.cfg.Dialect)
			return nil
		},
	}
}

func newExecCmd(a *app) *cobra.Command {
	var inTx bool
	cmd := &cobra.Command{
		Use:   "exec <query> [value... | name=value...]",
		Short: "Run a query against the configured database",
		Long:  "Runs a query with positional values, or with name=value pairs bound by placeholder name. Values that parse as integers, floats, booleans or null are passed as such.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DatabaseURL == "" {
				return fmt.Errorf("no database URL: set --db or DATABASE_URL")
			}
			qs, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			q, err := qs.Lookup(args[0])
			if err != nil {
				return err
			}
			values, err := parseArgs(args[1:])
			if err != nil {
				return err
			}
			values = batchArgs(q.Kind(), values)

			db, err := sql.Open(a.cfg.Dialect, a.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			var result any
			run := func(conn dialect.Conn) error {
				if q.IsCursor() {
					return q.Cursor(ctx, conn, func(c dialect.Cursor) error {
						rs, err := dialect.Collect(c)
						result = rs
						return err
					}, values...)
				}
				var err error
				result, err = q.Call(ctx, conn, values...)
				return err
			}
			if inTx {
				err = namedsql.WithTx(ctx, db, nil, func(tx *sql.Tx) error { return run(tx) })
			} else {
				err = run(db)
			}
			if err != nil {
				return err
			}
			a.logger.Debug("query executed", "query", args[0], "kind", q.Kind())
			return writeResult(cmd.OutOrStdout(), a.cfg.Format, result)
		},
	}
	cmd.Flags().BoolVar(&inTx, "tx", false, "run inside a transaction")
	return cmd
}

func newGenCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a Go file with one constant per query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			qs, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			w, closeFn, err := a.output(cmd, out)
			if err != nil {
				return err
			}
			if err := gen.Write(w, qs, gen.WithPackage(a.cfg.Package), gen.WithDialect(a.cfg.Dialect)); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().String("package", "queries", "generated package name")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newBundleCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Write a precompiled bundle of the queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			qs, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			w, closeFn, err := a.output(cmd, out)
			if err != nil {
				return err
			}
			if err := namedsql.WriteBundle(w, a.cfg.Dialect, qs); err != nil {
				_ = closeFn()
				return err
			}
			if err := closeFn(); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d queries to %s\n", qs.Len(), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := a.cfg.Format
			if format == "text" {
				format = "yaml"
			}
			return writeStructured(cmd.OutOrStdout(), format, a.cfg)
		},
	}
}

// parseArgs turns exec arguments into query arguments: a dialect.Params
// when every argument is name=value, positional values otherwise.
func parseArgs(args []string) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	keyed := 0
	for _, s := range args {
		if strings.Contains(s, "=") {
			keyed++
		}
	}
	switch keyed {
	case 0:
		values := make([]any, len(args))
		for i, s := range args {
			values[i] = parseValue(s)
		}
		return values, nil
	case len(args):
		params := make(dialect.Params, len(args))
		for _, s := range args {
			k, v, _ := strings.Cut(s, "=")
			if k == "" {
				return nil, fmt.Errorf("invalid argument %q: empty name", s)
			}
			params[k] = parseValue(v)
		}
		return []any{params}, nil
	default:
		return nil, fmt.Errorf("cannot mix positional values and name=value arguments")
	}
}

// batchArgs makes the command line one parameter set for statements that
// take a list of sets.
func batchArgs(kind statement.Kind, values []any) []any {
	if kind != statement.InsertUpdateDeleteMany || len(values) == 0 {
		return values
	}
	if _, keyed := values[0].(dialect.Params); keyed {
		return values
	}
	return []any{values}
}

func parseValue(s string) any {
	switch s {
	case "null", "NULL":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
