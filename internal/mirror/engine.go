// Package mirror keeps a .faf file and its Markdown mirror in step. One call
// to Sync analyses both files, picks a direction, writes the target through
// the atomic writer and verifies the pair afterwards.
//
// Separate processes syncing the same pair are only serialised when a lock
// path is configured (WithLock); without it, concurrent invocations race.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/starford/faf/internal/checksum"
	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/events"
	"github.com/starford/faf/internal/score"
	"github.com/starford/faf/internal/storage"
	"github.com/starford/faf/internal/transform"
)

// ErrLocked is reported when another process holds the sync lock.
var ErrLocked = errors.New("another sync is in progress")

// Result describes one sync pass. Failures are reported here, never returned
// as errors.
type Result struct {
	SyncID         string        `json:"sync_id"`
	Success        bool          `json:"success"`
	Direction      Direction     `json:"direction"`
	FilesChanged   []string      `json:"files_changed"`
	Planned        []string      `json:"planned,omitempty"`
	Integrity      Integrity     `json:"integrity"`
	IntegrityNotes []string      `json:"integrity_notes,omitempty"`
	Conflict       string        `json:"conflict,omitempty"`
	Preserved      bool          `json:"preserved_custom_content,omitempty"`
	DryRun         bool          `json:"dry_run,omitempty"`
	Score          *ScoreTriple  `json:"score,omitempty"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Engine synchronises one structured/readable file pair. Passes on one
// Engine run one at a time; WithLock extends that across processes.
type Engine struct {
	mu sync.Mutex

	store      storage.Provider
	bus        *events.Bus
	state      StateStore
	logger     *slog.Logger
	now        func() time.Time
	structured string
	readable   string
	strategy   ConflictStrategy
	stateKey   string
	lockPath   string
	scoreOpts  []score.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus sets the event bus progress is reported on.
func WithBus(b *events.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithStateStore sets where last known-good fingerprints are kept.
func WithStateStore(s StateStore) Option {
	return func(e *Engine) { e.state = s }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now, for deterministic footers in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFiles sets the structured and readable file paths, relative to the
// storage root.
func WithFiles(structured, readable string) Option {
	return func(e *Engine) {
		if structured != "" {
			e.structured = structured
		}
		if readable != "" {
			e.readable = readable
		}
	}
}

// WithConflictStrategy sets the policy for passes where both files changed.
func WithConflictStrategy(s ConflictStrategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithStateKey sets the key the pair's state is stored under. It defaults to
// "<structured>|<readable>".
func WithStateKey(key string) Option {
	return func(e *Engine) { e.stateKey = key }
}

// WithLock serialises Sync across processes with an advisory file lock.
func WithLock(path string) Option {
	return func(e *Engine) { e.lockPath = path }
}

// WithScoreOptions passes options to the score calculator used for rendering
// and verification.
func WithScoreOptions(opts ...score.Option) Option {
	return func(e *Engine) { e.scoreOpts = append(e.scoreOpts, opts...) }
}

// New creates an Engine over store.
func New(store storage.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		now:        time.Now,
		structured: document.StructuredName,
		readable:   document.ReadableName,
		strategy:   StructuredWins,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.bus == nil {
		e.bus = events.NewBus(e.logger)
	}
	if e.state == nil {
		e.state = NewMemoryState()
	}
	if e.stateKey == "" {
		e.stateKey = e.structured + "|" + e.readable
	}
	return e
}

// Files returns the structured and readable paths the engine manages.
func (e *Engine) Files() (structured, readable string) {
	return e.structured, e.readable
}

// Sync runs one synchronisation pass.
func (e *Engine) Sync(ctx context.Context) Result {
	return e.run(ctx, false)
}

// Plan decides the direction of a pass without writing anything.
func (e *Engine) Plan(ctx context.Context) Result {
	return e.run(ctx, true)
}

// pass carries the per-invocation state through the steps of run.
type pass struct {
	id      string
	started time.Time
	res     Result
}

func (e *Engine) run(ctx context.Context, dryRun bool) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := &pass{id: uuid.NewString(), started: e.now()}
	p.res = Result{SyncID: p.id, DryRun: dryRun, FilesChanged: []string{}}
	e.emit(p, events.SyncStart, map[string]any{
		"structured": e.structured,
		"readable":   e.readable,
		"dry_run":    dryRun,
	})

	if e.lockPath != "" && !dryRun {
		fl := flock.New(e.lockPath)
		locked, err := fl.TryLock()
		if err != nil {
			return e.fail(p, fmt.Errorf("mirror: lock: %w", err))
		}
		if !locked {
			return e.fail(p, ErrLocked)
		}
		defer func() { _ = fl.Unlock() }()
	}

	structured, readable, err := e.analyze(ctx)
	if err != nil {
		return e.fail(p, err)
	}
	e.emit(p, events.SyncProgress, map[string]any{
		"step":              "analyze",
		"structured_exists": structured.stat.Exists,
		"readable_exists":   readable.stat.Exists,
	})

	prev, known, err := e.state.LoadState(ctx, e.stateKey)
	if err != nil {
		e.logger.Warn("mirror: load sync state failed", slog.String("error", err.Error()))
		known = false
	}
	d := decide(structured, readable, prev, known, e.strategy)
	p.res.Direction = d.direction
	if d.conflict != "" {
		p.res.Conflict = d.conflict
		e.logger.Warn("mirror: conflict resolved by policy",
			slog.String("strategy", string(e.strategy)),
			slog.String("direction", string(d.direction)))
		e.emit(p, events.SyncConflict, map[string]any{
			"strategy":  string(e.strategy),
			"direction": string(d.direction),
			"note":      d.conflict,
		})
	}
	e.emit(p, events.SyncProgress, map[string]any{"step": "decide", "direction": string(d.direction)})

	if dryRun {
		if target := e.target(d.direction); target != "" {
			p.res.Planned = []string{target}
		}
		p.res.Integrity = IntegritySkipped
		return e.complete(p)
	}

	if d.direction == DirectionNone {
		if !structured.stat.Exists && !readable.stat.Exists {
			p.res.Integrity = IntegritySkipped
			return e.complete(p)
		}
		return e.finish(ctx, p)
	}

	if err := ctx.Err(); err != nil {
		return e.fail(p, err)
	}

	var content []byte
	switch d.direction {
	case StructuredToReadable:
		content, err = e.toReadable(p, structured, readable)
	case ReadableToStructured:
		content, err = e.toStructured(structured, readable)
	}
	if err != nil {
		return e.fail(p, err)
	}

	target := e.target(d.direction)
	src, dst := structured, readable
	if d.direction == ReadableToStructured {
		src, dst = readable, structured
	}
	if dst.stat.Exists && checksum.Sum(dst.content) == checksum.Sum(content) {
		e.emit(p, events.SyncProgress, map[string]any{"step": "write", "file": target, "skipped": true})
		e.alignModTime(target, src.stat.ModTime)
		return e.finish(ctx, p)
	}

	if err := e.store.Write(target, content); err != nil {
		return e.fail(p, fmt.Errorf("mirror: write %s: %w", target, err))
	}
	p.res.FilesChanged = append(p.res.FilesChanged, target)
	e.alignModTime(target, src.stat.ModTime)
	e.emit(p, events.SyncProgress, map[string]any{"step": "write", "file": target, "bytes": len(content)})

	return e.finish(ctx, p)
}

// alignModTime gives target the source's mtime. Without stored state the
// next pass compares mtimes, and equal ones mean the pair is in step.
func (e *Engine) alignModTime(target string, mtime time.Time) {
	if mtime.IsZero() {
		return
	}
	if err := e.store.Touch(target, mtime); err != nil {
		e.logger.Warn("mirror: align mtime failed", slog.String("file", target), slog.String("error", err.Error()))
	}
}

// analyze stats and reads both files.
func (e *Engine) analyze(ctx context.Context) (side, side, error) {
	var out [2]side
	for i, path := range []string{e.structured, e.readable} {
		if err := ctx.Err(); err != nil {
			return side{}, side{}, err
		}
		st, err := e.store.Stat(path)
		if err != nil {
			return side{}, side{}, fmt.Errorf("mirror: analyze: %w", err)
		}
		out[i].stat = st
		if !st.Exists {
			continue
		}
		data, err := e.store.Read(path)
		if err != nil {
			return side{}, side{}, fmt.Errorf("mirror: analyze: %w", err)
		}
		out[i].content = data
	}
	return out[0], out[1], nil
}

func (e *Engine) toReadable(p *pass, structured, readable side) ([]byte, error) {
	doc, err := document.Parse(structured.content)
	if err != nil {
		return nil, fmt.Errorf("mirror: %s: %w", e.structured, err)
	}
	res := score.Calculate(doc, e.scoreOpts...)
	e.emit(p, events.ScoreCalculated, map[string]any{
		"score":      res.TotalScore,
		"filled":     res.FilledCount,
		"ignored":    res.IgnoredCount,
		"missing":    res.MissingCount,
		"confidence": res.Confidence,
		"embedded":   res.Embedded,
	})

	now := e.now()
	if readable.stat.Exists && hasCustomContent(string(readable.content)) {
		p.res.Preserved = true
		e.emit(p, events.SyncProgress, map[string]any{"step": "preserve", "file": e.readable})
		return []byte(refreshFooter(string(readable.content), now)), nil
	}
	return []byte(transform.ToReadable(doc, res, now)), nil
}

func (e *Engine) toStructured(structured, readable side) ([]byte, error) {
	existing := document.Document{}
	if structured.stat.Exists {
		doc, err := document.Parse(structured.content)
		if err != nil {
			return nil, fmt.Errorf("mirror: %s: %w", e.structured, err)
		}
		existing = doc
	}
	merged := transform.FromReadable(string(readable.content), existing, e.now())
	out, err := merged.Stringify()
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	return out, nil
}

func (e *Engine) target(d Direction) string {
	switch d {
	case StructuredToReadable:
		return e.readable
	case ReadableToStructured:
		return e.structured
	default:
		return ""
	}
}

// finish verifies the pair, records the known-good state and completes.
func (e *Engine) finish(ctx context.Context, p *pass) Result {
	rep := verify(e.store, e.structured, e.readable, e.scoreOpts)
	p.res.Integrity = rep.integrity
	p.res.IntegrityNotes = rep.notes
	p.res.Score = rep.triple

	switch rep.integrity {
	case IntegrityFailed:
		e.emit(p, events.IntegrityFailed, map[string]any{"notes": rep.notes})
		p.res.Error = "integrity check failed"
		if len(rep.notes) > 0 {
			p.res.Error = rep.notes[0]
		}
		return e.failed(p)
	case IntegrityDegraded:
		e.emit(p, events.IntegrityDegraded, map[string]any{"notes": rep.notes})
	default:
		e.emit(p, events.IntegrityPerfect, nil)
	}

	rep.sums.SyncedAt = e.now()
	if err := e.state.SaveState(ctx, e.stateKey, rep.sums); err != nil {
		e.logger.Warn("mirror: save sync state failed", slog.String("error", err.Error()))
	}
	return e.complete(p)
}

func (e *Engine) complete(p *pass) Result {
	p.res.Success = true
	p.res.Duration = e.now().Sub(p.started)
	e.logger.Info("mirror: sync complete",
		slog.String("sync_id", p.id),
		slog.String("direction", string(p.res.Direction)),
		slog.String("integrity", string(p.res.Integrity)),
		slog.Int("files_changed", len(p.res.FilesChanged)))
	e.emit(p, events.SyncComplete, map[string]any{
		"direction":     string(p.res.Direction),
		"files_changed": p.res.FilesChanged,
		"integrity":     string(p.res.Integrity),
		"dry_run":       p.res.DryRun,
	})
	return p.res
}

// fail records err and emits the failure events.
func (e *Engine) fail(p *pass, err error) Result {
	p.res.Error = err.Error()
	e.emit(p, events.IntegrityFailed, map[string]any{"error": err.Error()})
	return e.failed(p)
}

func (e *Engine) failed(p *pass) Result {
	p.res.Success = false
	p.res.Integrity = IntegrityFailed
	p.res.Duration = e.now().Sub(p.started)
	e.logger.Error("mirror: sync failed", slog.String("sync_id", p.id), slog.String("error", p.res.Error))
	e.emit(p, events.SyncError, map[string]any{"error": p.res.Error})
	return p.res
}

func (e *Engine) emit(p *pass, typ string, data map[string]any) {
	ev := events.Event{Type: typ, Timestamp: e.now(), Data: data}
	e.bus.Emit(ev.WithMetadata(map[string]any{"sync_id": p.id, "source": "mirror"}))
}
