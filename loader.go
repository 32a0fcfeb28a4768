package namedsql

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/statement"
)

// DefaultExtension is the file extension loaded from directories unless
// WithExtensions says otherwise.
const DefaultExtension = ".sql"

// Loader parses annotated SQL into Queries for one dialect.
type Loader struct {
	tag         string
	adapter     dialect.Adapter
	fs          afero.Fs
	exts        []string
	logger      *slog.Logger
	concurrency int
	cache       Cache
	fingerprint string // adapter settings that shape parsed output
}

// Option configures a Loader.
type Option func(*Loader)

// WithFs sets the filesystem paths are read from. Default is the OS
// filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(l *Loader) {
		l.fs = fsys
	}
}

// WithExtensions sets the file extensions loaded from directories.
// A missing leading dot is added.
func WithExtensions(exts ...string) Option {
	return func(l *Loader) {
		l.exts = l.exts[:0]
		for _, ext := range exts {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			l.exts = append(l.exts, ext)
		}
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithConcurrency bounds the number of files parsed at once. Values below
// one keep the default, runtime.GOMAXPROCS(0).
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithCache reuses parsed files across loads.
func WithCache(c Cache) Option {
	return func(l *Loader) {
		l.cache = c
	}
}

// WithAdapter uses a instead of the adapter registered under the tag.
func WithAdapter(a dialect.Adapter) Option {
	return func(l *Loader) {
		l.adapter = a
	}
}

// NewLoader returns a Loader for the adapter registered under tag.
func NewLoader(tag string, opts ...Option) (*Loader, error) {
	l := &Loader{
		tag:         tag,
		fs:          afero.NewOsFs(),
		exts:        []string{DefaultExtension},
		logger:      slog.Default(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.adapter == nil {
		a, err := dialect.Lookup(tag)
		if err != nil {
			return nil, err
		}
		l.adapter = a
	}
	l.fingerprint = fingerprint(l.adapter)
	return l, nil
}

// fingerprint renders the adapter's markers, returning policy and quoting,
// so cached parses are not shared between adapters that shape statements
// differently under one tag.
func fingerprint(a dialect.Adapter) string {
	var marks string
	if m := a.Markers(); m != nil {
		marks = m.Binding().String() + ":" + m.Placeholder("p", 1) + "," + m.Placeholder("p", 2)
	}
	r := a.Returning()
	return fmt.Sprintf("%s|%d:%s|%s", marks, r.Mode, r.Column, dialect.QuotingOf(a))
}

// FromString parses text for the dialect tag.
func FromString(tag, text string, opts ...Option) (*Queries, error) {
	l, err := NewLoader(tag, opts...)
	if err != nil {
		return nil, err
	}
	return l.LoadString(text)
}

// FromPath loads a file or directory tree for the dialect tag.
func FromPath(ctx context.Context, tag, path string, opts ...Option) (*Queries, error) {
	l, err := NewLoader(tag, opts...)
	if err != nil {
		return nil, err
	}
	return l.LoadPath(ctx, path)
}

// Tag returns the dialect tag.
func (l *Loader) Tag() string { return l.tag }

// Adapter returns the adapter statements are bound to.
func (l *Loader) Adapter() dialect.Adapter { return l.adapter }

// Fs returns the filesystem paths are read from.
func (l *Loader) Fs() afero.Fs { return l.fs }

// LoadString parses text into a flat registry.
func (l *Loader) LoadString(text string) (*Queries, error) {
	descs, err := statement.ParseAll(text, l.options(""))
	if err != nil {
		return nil, err
	}
	qs := NewQueries()
	qs.addDescriptors(descs, l.adapter)
	return qs, nil
}

// LoadPath loads a single file into a flat registry, or a directory tree
// into a registry with one namespace per subdirectory. Files are parsed
// concurrently; the first failure aborts the load and no registry is
// returned.
func (l *Loader) LoadPath(ctx context.Context, path string) (*Queries, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, NewLoadError(path, err)
	}
	switch {
	case info.Mode().IsRegular():
		descs, err := l.parseFile(ctx, path)
		if err != nil {
			return nil, err
		}
		qs := NewQueries()
		qs.addDescriptors(descs, l.adapter)
		return qs, nil
	case info.IsDir():
		return l.loadDir(ctx, path)
	default:
		return nil, NewLoadError(path, errors.New("not a regular file or directory"))
	}
}

// sqlFile is a file found under a loaded directory.
type sqlFile struct {
	ns   []string
	path string
}

func (l *Loader) loadDir(ctx context.Context, root string) (*Queries, error) {
	files, err := l.scan(root)
	if err != nil {
		return nil, err
	}
	results := make([][]*statement.Descriptor, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, f := range files {
		g.Go(func() error {
			descs, err := l.parseFile(gctx, f.path)
			if err != nil {
				return err
			}
			results[i] = descs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	qs := NewQueries()
	for i, f := range files {
		if len(results[i]) > 0 {
			qs.ensure(f.ns).addDescriptors(results[i], l.adapter)
		}
	}
	l.logger.DebugContext(ctx, "loaded directory", "path", root, "files", len(files), "queries", qs.Len())
	return qs, nil
}

// scan lists the loadable files under root in lexical order. Hidden
// entries are skipped.
func (l *Loader) scan(root string) ([]sqlFile, error) {
	var files []sqlFile
	err := afero.Walk(l.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !l.matches(info.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		var ns []string
		if rel != "." {
			for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
				ns = append(ns, NamespaceName(seg))
			}
		}
		files = append(files, sqlFile{ns: ns, path: path})
		return nil
	})
	if err != nil {
		return nil, NewLoadError(root, err)
	}
	return files, nil
}

func (l *Loader) matches(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range l.exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func (l *Loader) parseFile(ctx context.Context, path string) ([]*statement.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, NewLoadError(path, err)
	}
	text := string(b)
	var key string
	if l.cache != nil {
		key = cacheKey{Tag: l.tag, Adapter: l.fingerprint, Path: path, Text: text}.String()
		if descs, ok := l.cached(ctx, key); ok {
			l.logger.DebugContext(ctx, "loaded file from cache", "path", path, "statements", len(descs))
			return descs, nil
		}
	}
	descs, err := statement.ParseAll(text, l.options(path))
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		if b, err := encodeDescriptors(descs); err == nil {
			if err := l.cache.Set(ctx, key, b); err != nil {
				l.logger.WarnContext(ctx, "cache set failed", "path", path, "error", err)
			}
		}
	}
	l.logger.DebugContext(ctx, "loaded file", "path", path, "statements", len(descs))
	return descs, nil
}

func (l *Loader) cached(ctx context.Context, key string) ([]*statement.Descriptor, bool) {
	b, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		return nil, false
	}
	if b == nil {
		return nil, false
	}
	descs, err := decodeDescriptors(b)
	if err != nil {
		l.logger.WarnContext(ctx, "dropping corrupt cache entry", "key", key, "error", err)
		_ = l.cache.Delete(ctx, key)
		return nil, false
	}
	return descs, true
}

func (l *Loader) options(source string) statement.Options {
	return statement.Options{
		Markers:   l.adapter.Markers(),
		Returning: l.adapter.Returning(),
		Quoting:   dialect.QuotingOf(l.adapter),
		Source:    source,
	}
}

var namespaceReplacer = strings.NewReplacer("-", "_", ".", "_")

// NamespaceName returns the namespace a directory called dir maps to.
func NamespaceName(dir string) string {
	return namespaceReplacer.Replace(dir)
}

// addDescriptors registers the queries of every statement in order.
func (qs *Queries) addDescriptors(descs []*statement.Descriptor, a dialect.Adapter) {
	for _, d := range descs {
		qs.add(NewQuery(d, a))
	}
}

// ensure returns the namespace at ns, creating missing levels.
func (qs *Queries) ensure(ns []string) *Queries {
	cur := qs
	for _, name := range ns {
		cur.mu.Lock()
		child, ok := cur.namespaces[name]
		if !ok {
			child = NewQueries()
			cur.namespaces[name] = child
		}
		cur.mu.Unlock()
		cur = child
	}
	return cur
}
