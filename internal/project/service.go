// Package project is the application layer shared by the CLI, the HTTP API
// and the MCP server: it loads the structured file, scores it, renders it and
// drives the mirror engine.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/checksum"
	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/history"
	"github.com/starford/faf/internal/lint"
	"github.com/starford/faf/internal/mirror"
	"github.com/starford/faf/internal/score"
	"github.com/starford/faf/internal/storage"
	"github.com/starford/faf/internal/transform"
	"github.com/starford/faf/internal/validate"
)

// ErrHistoryDisabled is returned by History when no database is configured.
var ErrHistoryDisabled = errors.New("score history is disabled")

// FafVersion is written into documents created by Init.
const FafVersion = "2.5.0"

// ContextDetail is the structured file as served over the API.
type ContextDetail struct {
	Path     string            `json:"path"`
	Checksum string            `json:"checksum"`
	Content  string            `json:"content"`
	Document document.Document `json:"document"`
}

// Service coordinates storage, scoring, the mirror engine and history.
type Service struct {
	store     storage.Provider
	engine    *mirror.Engine
	db        *history.DB
	root      string
	scoreOpts []score.Option
	now       func() time.Time
}

// NewService creates a project service. db may be nil, which disables score
// history. root keys history rows and should be absolute.
func NewService(store storage.Provider, engine *mirror.Engine, db *history.DB, root string, opts ...score.Option) *Service {
	return &Service{
		store:     store,
		engine:    engine,
		db:        db,
		root:      root,
		scoreOpts: opts,
		now:       time.Now,
	}
}

// ResolveStructured returns the structured file name to use under store:
// configured when it exists, then the legacy ".faf" file, then the only
// "*.faf" file in the root. Otherwise configured is returned as is.
func ResolveStructured(store storage.Provider, configured string) string {
	if configured == "" {
		configured = document.StructuredName
	}
	if st, err := store.Stat(configured); err == nil && st.Exists {
		return configured
	}
	if configured != document.StructuredName {
		return configured
	}
	if st, err := store.Stat(document.LegacyStructuredName); err == nil && st.Exists {
		return document.LegacyStructuredName
	}
	if found, err := store.List("*" + document.LegacyStructuredName); err == nil && len(found) == 1 {
		return found[0].Path
	}
	return configured
}

// Files returns the structured and readable file names.
func (s *Service) Files() (structured, readable string) {
	return s.engine.Files()
}

// Root returns the project root the service was created for.
func (s *Service) Root() string {
	return s.root
}

func (s *Service) readStructured() ([]byte, error) {
	path, _ := s.engine.Files()
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// Load reads and parses the structured file.
func (s *Service) Load(_ context.Context) (document.Document, error) {
	data, err := s.readStructured()
	if err != nil {
		return nil, err
	}
	return document.Parse(data)
}

// Context returns the structured file with its parsed form.
func (s *Service) Context(_ context.Context) (*ContextDetail, error) {
	data, err := s.readStructured()
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	path, _ := s.engine.Files()
	return &ContextDetail{
		Path:     path,
		Checksum: checksum.Sum(data),
		Content:  string(data),
		Document: doc,
	}, nil
}

// UpdateContext replaces the structured file with content after checking it
// parses. A non-empty ifMatch must equal the current file checksum.
func (s *Service) UpdateContext(ctx context.Context, content []byte, ifMatch string) (*ContextDetail, error) {
	if _, err := document.Parse(content); err != nil {
		return nil, err
	}
	if ifMatch != "" {
		existing, err := s.readStructured()
		if err != nil {
			return nil, err
		}
		if checksum.Sum(existing) != ifMatch {
			return nil, apperr.ErrConflict
		}
	}
	path, _ := s.engine.Files()
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	return s.Context(ctx)
}

// Score scores the structured file and, when history is enabled, records
// the result.
func (s *Service) Score(ctx context.Context) (score.Result, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return score.Result{}, err
	}
	res := score.Calculate(doc, s.scoreOpts...)
	if s.db != nil {
		if _, err := s.db.Record(ctx, s.root, res, s.now()); err != nil {
			return res, err
		}
	}
	return res, nil
}

// WriteScore recomputes the score, ignoring any embedded marker, and writes
// it back into the structured file's scores section.
func (s *Service) WriteScore(ctx context.Context) (score.Result, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return score.Result{}, err
	}
	opts := append(append([]score.Option(nil), s.scoreOpts...), score.WithoutEmbedded())
	res := score.Calculate(doc, opts...)
	out, err := score.WriteBack(doc, res, s.now()).Stringify()
	if err != nil {
		return res, err
	}
	path, _ := s.engine.Files()
	if err := s.store.Write(path, out); err != nil {
		return res, err
	}
	if s.db != nil {
		if _, err := s.db.Record(ctx, s.root, res, s.now()); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Readable renders the Markdown mirror without writing it.
func (s *Service) Readable(ctx context.Context) (string, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return transform.ToReadable(doc, score.Calculate(doc, s.scoreOpts...), s.now()), nil
}

// Text renders the plain-text summary.
func (s *Service) Text(ctx context.Context) (string, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return transform.ToText(doc, score.Calculate(doc, s.scoreOpts...)), nil
}

// Sync runs one mirror pass, or plans one when dryRun is set.
func (s *Service) Sync(ctx context.Context, dryRun bool) mirror.Result {
	if dryRun {
		return s.engine.Plan(ctx)
	}
	return s.engine.Sync(ctx)
}

// Validate checks the structured file against the document rules.
func (s *Service) Validate(_ context.Context) error {
	data, err := s.readStructured()
	if err != nil {
		return err
	}
	return validate.Bytes(data)
}

// Lint reports formatting findings. With fix set, fixable problems are
// rewritten in place and fixed reports whether the file changed.
func (s *Service) Lint(_ context.Context, fix bool) (findings []lint.Finding, fixed bool, err error) {
	data, err := s.readStructured()
	if err != nil {
		return nil, false, err
	}
	findings = lint.Check(data)
	if !fix {
		return findings, false, nil
	}
	changed, err := lint.Changed(data)
	if err != nil || !changed {
		return findings, false, err
	}
	out, err := lint.Fix(data)
	if err != nil {
		return findings, false, err
	}
	path, _ := s.engine.Files()
	if err := s.store.Write(path, out); err != nil {
		return findings, false, err
	}
	return lint.Check(out), true, nil
}

// History returns recent score entries for this project, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return s.db.Recent(ctx, s.root, limit)
}

// InitOptions configures Init.
type InitOptions struct {
	Name  string
	Goal  string
	Force bool
}

// Init writes a starter structured file and syncs it to create the mirror.
// It fails with apperr.ErrAlreadyExists when the file exists and Force is
// not set.
func (s *Service) Init(ctx context.Context, opts InitOptions) (mirror.Result, error) {
	path, _ := s.engine.Files()
	st, err := s.store.Stat(path)
	if err != nil {
		return mirror.Result{}, err
	}
	if st.Exists && !opts.Force {
		return mirror.Result{}, fmt.Errorf("%s: %w", path, apperr.ErrAlreadyExists)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(s.root)
	}
	doc := document.Document{
		"faf_version": FafVersion,
		"project":     map[string]any{"name": name},
	}
	if opts.Goal != "" {
		doc.Set("project.goal", opts.Goal)
	}
	doc.Set("metadata.created", s.now().UTC().Format(time.RFC3339))

	out, err := doc.Stringify()
	if err != nil {
		return mirror.Result{}, err
	}
	if err := s.store.Write(path, out); err != nil {
		return mirror.Result{}, err
	}
	return s.engine.Sync(ctx), nil
}
