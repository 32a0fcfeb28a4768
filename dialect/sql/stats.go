package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/statement"
)

// QueryStats holds statement execution statistics, in total and per
// statement name.
type QueryStats struct {
	// TotalQueries is the number of selects, cursors included.
	TotalQueries atomic.Int64
	// TotalExecs is the number of writes, batches and scripts.
	TotalExecs atomic.Int64
	// ParameterSets is the number of parameter sets run by batches.
	ParameterSets atomic.Int64
	// TotalDuration is the total time spent in the adapter.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64

	calls sync.Map // statement name -> *atomic.Int64
}

// Calls returns the number of times the statement name ran. Scripts are
// counted under the empty name.
func (s *QueryStats) Calls(name string) int64 {
	if n, ok := s.calls.Load(name); ok {
		return n.(*atomic.Int64).Load()
	}
	return 0
}

func (s *QueryStats) called(name string) {
	n, ok := s.calls.Load(name)
	if !ok {
		n, _ = s.calls.LoadOrStore(name, new(atomic.Int64))
	}
	n.(*atomic.Int64).Add(1)
}

// Stats returns a snapshot of the totals.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		ParameterSets: s.ParameterSets.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset zeroes the totals and forgets the per-statement counts.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.ParameterSets.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
	s.calls.Clear()
}

// StatsSnapshot is a point-in-time copy of the totals.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	ParameterSets int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the mean time per statement.
func (s StatsSnapshot) AvgDuration() time.Duration {
	n := s.TotalQueries + s.TotalExecs
	if n == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(n)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("selects=%d execs=%d sets=%d time=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.ParameterSets, s.TotalDuration, s.AvgDuration(),
		s.SlowQueries, s.Errors)
}

// SlowQueryHook receives statements slower than the threshold.
type SlowQueryHook func(ctx context.Context, name, query string, duration time.Duration)

// StatsAdapter wraps an Adapter with statistics collection.
type StatsAdapter struct {
	dialect.Adapter
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsAdapter.
type StatsOption func(*StatsAdapter)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsAdapter) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsAdapter) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to the default logger.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, name, query string, duration time.Duration) {
		slog.WarnContext(ctx, "slow statement detected", "name", name, "duration", duration, "query", query)
	})
}

// NewStatsAdapter wraps an Adapter with statistics collection.
//
//	adapter := sql.NewStatsAdapter(sql.PostgresAdapter,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(),
//	)
//	dialect.Register(dialect.Postgres, adapter)
//
//	// Later, check statistics:
//	fmt.Println(adapter.QueryStats().Stats())
func NewStatsAdapter(a dialect.Adapter, opts ...StatsOption) *StatsAdapter {
	s := &StatsAdapter{
		Adapter:       a,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the live counters.
func (s *StatsAdapter) QueryStats() *QueryStats {
	return s.stats
}

// SlowThreshold returns the current slow statement threshold.
func (s *StatsAdapter) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow statement threshold.
func (s *StatsAdapter) SetSlowThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = threshold
}

// Select implements dialect.Adapter.
func (s *StatsAdapter) Select(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (*dialect.ResultSet, error) {
	start := time.Now()
	rs, err := s.Adapter.Select(ctx, conn, name, query, args)
	s.record(ctx, name, query, start, err, true)
	return rs, err
}

// SelectCursor implements dialect.Adapter. The duration covers opening the
// cursor, not iterating it.
func (s *StatsAdapter) SelectCursor(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (dialect.Cursor, error) {
	start := time.Now()
	c, err := s.Adapter.SelectCursor(ctx, conn, name, query, args)
	s.record(ctx, name, query, start, err, true)
	return c, err
}

// Execute implements dialect.Adapter.
func (s *StatsAdapter) Execute(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) error {
	start := time.Now()
	err := s.Adapter.Execute(ctx, conn, name, query, args)
	s.record(ctx, name, query, start, err, false)
	return err
}

// ExecuteMany implements dialect.Adapter. A batch counts as one exec; its
// parameter sets are counted when it succeeds.
func (s *StatsAdapter) ExecuteMany(ctx context.Context, conn dialect.Conn, name, query string, batches []dialect.Args) error {
	start := time.Now()
	err := s.Adapter.ExecuteMany(ctx, conn, name, query, batches)
	if err == nil {
		s.stats.ParameterSets.Add(int64(len(batches)))
	}
	s.record(ctx, name, query, start, err, false)
	return err
}

// InsertReturning implements dialect.Adapter.
func (s *StatsAdapter) InsertReturning(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (any, error) {
	start := time.Now()
	v, err := s.Adapter.InsertReturning(ctx, conn, name, query, args)
	s.record(ctx, name, query, start, err, false)
	return v, err
}

// ExecuteScript implements dialect.Adapter.
func (s *StatsAdapter) ExecuteScript(ctx context.Context, conn dialect.Conn, query string) error {
	start := time.Now()
	err := s.Adapter.ExecuteScript(ctx, conn, query)
	s.record(ctx, "", query, start, err, false)
	return err
}

func (s *StatsAdapter) record(ctx context.Context, name, query string, start time.Time, err error, isQuery bool) {
	elapsed := time.Since(start)
	if isQuery {
		s.stats.TotalQueries.Add(1)
	} else {
		s.stats.TotalExecs.Add(1)
	}
	s.stats.called(name)
	s.stats.TotalDuration.Add(int64(elapsed))
	if err != nil {
		s.stats.Errors.Add(1)
	}

	s.mu.RLock()
	threshold := s.slowThreshold
	hook := s.slowHook
	s.mu.RUnlock()

	if elapsed <= threshold {
		return
	}
	s.stats.SlowQueries.Add(1)
	if hook != nil {
		hook(ctx, name, query, elapsed)
	}
}

// DebugAdapter wraps an Adapter with debug logging. Every call is logged
// with a fresh call id, and failures are logged again under the same id.
type DebugAdapter struct {
	dialect.Adapter
	logger *slog.Logger
}

// DebugOption configures the DebugAdapter.
type DebugOption func(*DebugAdapter)

// DebugWithLogger sets the logger. Default is slog.Default().
func DebugWithLogger(l *slog.Logger) DebugOption {
	return func(d *DebugAdapter) {
		d.logger = l
	}
}

// NewDebugAdapter wraps an Adapter with debug logging.
func NewDebugAdapter(a dialect.Adapter, opts ...DebugOption) *DebugAdapter {
	d := &DebugAdapter{
		Adapter: a,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DebugAdapter) log(ctx context.Context, op, name, query string, args any) func(error) {
	id := uuid.NewString()
	d.logger.DebugContext(ctx, op, "call", id, "name", name, "query", query, "args", args)
	return func(err error) {
		if err != nil {
			d.logger.DebugContext(ctx, op+" failed", "call", id, "name", name, "error", err)
		}
	}
}

// Select implements dialect.Adapter.
func (d *DebugAdapter) Select(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (*dialect.ResultSet, error) {
	done := d.log(ctx, "select", name, query, bind(args))
	rs, err := d.Adapter.Select(ctx, conn, name, query, args)
	done(err)
	return rs, err
}

// SelectCursor implements dialect.Adapter.
func (d *DebugAdapter) SelectCursor(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (dialect.Cursor, error) {
	done := d.log(ctx, "select cursor", name, query, bind(args))
	c, err := d.Adapter.SelectCursor(ctx, conn, name, query, args)
	done(err)
	return c, err
}

// Execute implements dialect.Adapter.
func (d *DebugAdapter) Execute(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) error {
	done := d.log(ctx, "exec", name, query, bind(args))
	err := d.Adapter.Execute(ctx, conn, name, query, args)
	done(err)
	return err
}

// ExecuteMany implements dialect.Adapter.
func (d *DebugAdapter) ExecuteMany(ctx context.Context, conn dialect.Conn, name, query string, batches []dialect.Args) error {
	done := d.log(ctx, "exec many", name, query, len(batches))
	err := d.Adapter.ExecuteMany(ctx, conn, name, query, batches)
	done(err)
	return err
}

// InsertReturning implements dialect.Adapter.
func (d *DebugAdapter) InsertReturning(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (any, error) {
	done := d.log(ctx, "insert returning", name, query, bind(args))
	v, err := d.Adapter.InsertReturning(ctx, conn, name, query, args)
	done(err)
	return v, err
}

// ExecuteScript implements dialect.Adapter.
func (d *DebugAdapter) ExecuteScript(ctx context.Context, conn dialect.Conn, query string) error {
	done := d.log(ctx, "script", "", query, nil)
	err := d.Adapter.ExecuteScript(ctx, conn, query)
	done(err)
	return err
}

// Quoting implements dialect.Quoter for the wrapped adapter.
func (s *StatsAdapter) Quoting() statement.Quoting { return dialect.QuotingOf(s.Adapter) }

// Quoting implements dialect.Quoter for the wrapped adapter.
func (d *DebugAdapter) Quoting() statement.Quoting { return dialect.QuotingOf(d.Adapter) }

var (
	_ dialect.Quoter  = (*Adapter)(nil)
	_ dialect.Quoter  = (*StatsAdapter)(nil)
	_ dialect.Quoter  = (*DebugAdapter)(nil)
	_ dialect.Adapter = (*StatsAdapter)(nil)
	_ dialect.Adapter = (*DebugAdapter)(nil)
)
