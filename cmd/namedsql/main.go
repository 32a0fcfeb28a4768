// Command namedsql inspects, runs and compiles directories of named SQL
// statements.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/syssam/namedsql"
	_ "github.com/syssam/namedsql/dialect/sql"
	"github.com/syssam/namedsql/internal/config"
)

func main() {
	cmd := newRootCmd(afero.NewOsFs())
	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	fs      afero.Fs
	cfg     *config.Config
	logger  *slog.Logger
	verbose bool
	noColor bool
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}
	root := &cobra.Command{
		Use:           "namedsql",
		Short:         "Load, inspect and run named SQL statements",
		Long:          "namedsql loads files of SQL statements declared with \"-- name:\" comments, rewrites their placeholders for a database dialect and runs or compiles them.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("dialect", "sqlite", "dialect tag: postgres|mysql|sqlite|sqlite3")
	flags.String("path", "queries", "file or directory of .sql files")
	flags.String("db", "", "database URL (default: $DATABASE_URL)")
	flags.String("format", "text", "output format: text|json|yaml")
	flags.StringSlice("ext", []string{namedsql.DefaultExtension}, "file extensions to load")
	flags.Int("concurrency", 0, "files parsed at once (default: GOMAXPROCS)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newCheckCmd(a),
		newExecCmd(a),
		newGenCmd(a),
		newBundleCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := (&config.Loader{Fs: a.fs, Flags: cmd.Flags()}).Load()
	if err != nil {
		return err
	}
	if err := validateFormat(cfg.Format); err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.File != "" {
		a.logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// load reads the configured path.
func (a *app) load(ctx context.Context) (*namedsql.Queries, error) {
	return namedsql.FromPath(ctx, a.cfg.Dialect, a.cfg.Path,
		namedsql.WithFs(a.fs),
		namedsql.WithLogger(a.logger),
		namedsql.WithExtensions(a.cfg.Extensions...),
		namedsql.WithConcurrency(a.cfg.Concurrency),
	)
}

// output returns the destination for generated artifacts: path on the
// command's filesystem, or stdout when path is empty or "-".
func (a *app) output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := a.fs.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}
