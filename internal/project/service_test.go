package project

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/mirror"
	"github.com/starford/faf/internal/testutil"
)

func newService(t *testing.T, withHistory bool) (*Service, string) {
	t.Helper()
	dir, store := testutil.TestProject(t)
	if !withHistory {
		return NewService(store, mirror.New(store), nil, dir), dir
	}
	db := testutil.TestDB(t)
	engine := mirror.New(store, mirror.WithStateStore(db), mirror.WithStateKey(dir))
	return NewService(store, engine, db, dir), dir
}

func TestLoad_NotFound(t *testing.T) {
	svc, _ := newService(t, false)
	if _, err := svc.Load(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestScore_RecordsHistory(t *testing.T) {
	svc, dir := newService(t, true)
	testutil.WriteFile(t, dir, document.StructuredName, testutil.SampleFAF)
	ctx := context.Background()

	res, err := svc.Score(ctx)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.TotalScore <= 0 {
		t.Errorf("score = %d", res.TotalScore)
	}
	entries, err := svc.History(ctx, 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != res.TotalScore {
		t.Errorf("history = %+v", entries)
	}
}

func TestHistory_Disabled(t *testing.T) {
	svc, _ := newService(t, false)
	if _, err := svc.History(context.Background(), 5); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("err = %v", err)
	}
}

func TestWriteScore(t *testing.T) {
	svc, dir := newService(t, false)
	testutil.WriteFile(t, dir, document.StructuredName, testutil.SampleFAF)

	res, err := svc.WriteScore(context.Background())
	if err != nil {
		t.Fatalf("WriteScore: %v", err)
	}
	doc, err := document.Parse([]byte(testutil.ReadFile(t, dir, document.StructuredName)))
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := doc.Get("scores.faf_score"); v == nil {
		t.Fatal("scores.faf_score not written")
	}
	if got := doc.GetString("stack.backend"); got != "chi" {
		t.Errorf("existing content lost: stack.backend = %q", got)
	}
	if res.Embedded {
		t.Error("write-back must not use an embedded score")
	}
}

func TestInit(t *testing.T) {
	svc, dir := newService(t, false)
	ctx := context.Background()

	res, err := svc.Init(ctx, InitOptions{Name: "fresh", Goal: "try faf"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !res.Success || res.Direction != mirror.StructuredToReadable {
		t.Errorf("sync result = %+v", res)
	}
	if md := testutil.ReadFile(t, dir, document.ReadableName); !strings.HasPrefix(md, "# CLAUDE.md - fresh") {
		t.Errorf("readable = %q", md)
	}

	if _, err := svc.Init(ctx, InitOptions{}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second init err = %v", err)
	}
	if _, err := svc.Init(ctx, InitOptions{Name: "again", Force: true}); err != nil {
		t.Errorf("forced init: %v", err)
	}
}

func TestValidate(t *testing.T) {
	svc, dir := newService(t, false)
	testutil.WriteFile(t, dir, document.StructuredName, testutil.SampleFAF)
	if err := svc.Validate(context.Background()); err != nil {
		t.Errorf("valid sample: %v", err)
	}
	testutil.WriteFile(t, dir, document.StructuredName, "project:\n  name: x\n")
	var ve *apperr.ValidationError
	if err := svc.Validate(context.Background()); !errors.As(err, &ve) {
		t.Errorf("err = %v", err)
	}
}

func TestLintFix(t *testing.T) {
	svc, dir := newService(t, false)
	testutil.WriteFile(t, dir, document.StructuredName, "project:\n   name: demo \n   goal: none\n")
	ctx := context.Background()

	findings, fixed, err := svc.Lint(ctx, false)
	if err != nil || fixed || len(findings) == 0 {
		t.Fatalf("check: findings=%v fixed=%v err=%v", findings, fixed, err)
	}
	findings, fixed, err = svc.Lint(ctx, true)
	if err != nil || !fixed {
		t.Fatalf("fix: fixed=%v err=%v", fixed, err)
	}
	if len(findings) != 0 {
		t.Errorf("findings after fix: %v", findings)
	}
	if got := testutil.ReadFile(t, dir, document.StructuredName); !strings.Contains(got, "goal: None") {
		t.Errorf("not fixed:\n%s", got)
	}
}

func TestResolveStructured_Legacy(t *testing.T) {
	dir, store := testutil.TestProject(t)
	if got := ResolveStructured(store, ""); got != document.StructuredName {
		t.Errorf("empty dir: %q", got)
	}
	testutil.WriteFile(t, dir, document.LegacyStructuredName, testutil.SampleFAF)
	if got := ResolveStructured(store, document.StructuredName); got != document.LegacyStructuredName {
		t.Errorf("legacy only: %q", got)
	}
	testutil.WriteFile(t, dir, document.StructuredName, testutil.SampleFAF)
	if got := ResolveStructured(store, document.StructuredName); got != document.StructuredName {
		t.Errorf("both: %q", got)
	}
}

func TestResolveStructured_SingleNamedFile(t *testing.T) {
	dir, store := testutil.TestProject(t)
	testutil.WriteFile(t, dir, "myapp.faf", testutil.SampleFAF)
	if got := ResolveStructured(store, document.StructuredName); got != "myapp.faf" {
		t.Errorf("single named file: %q", got)
	}
	testutil.WriteFile(t, dir, "other.faf", testutil.SampleFAF)
	if got := ResolveStructured(store, document.StructuredName); got != document.StructuredName {
		t.Errorf("ambiguous: %q", got)
	}
	if got := ResolveStructured(store, "custom.faf"); got != "custom.faf" {
		t.Errorf("explicit name: %q", got)
	}
}

func TestReadableAndText(t *testing.T) {
	svc, dir := newService(t, false)
	testutil.WriteFile(t, dir, document.StructuredName, testutil.SampleFAF)
	ctx := context.Background()

	md, err := svc.Readable(ctx)
	if err != nil || !strings.Contains(md, "BI-SYNC ACTIVE") {
		t.Errorf("Readable: %v\n%s", err, md)
	}
	txt, err := svc.Text(ctx)
	if err != nil || !strings.Contains(txt, "demo") {
		t.Errorf("Text: %v\n%s", err, txt)
	}
}

func TestUpdateContext(t *testing.T) {
	svc, dir := newService(t, false)
	testutil.WriteFile(t, dir, document.StructuredName, testutil.SampleFAF)
	ctx := context.Background()

	cur, err := svc.Context(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateContext(ctx, []byte("project:\n  name: x\n"), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale checksum err = %v", err)
	}
	if _, err := svc.UpdateContext(ctx, []byte("- list\n"), ""); !errors.Is(err, apperr.ErrInvalidDocument) {
		t.Errorf("invalid content err = %v", err)
	}
	got, err := svc.UpdateContext(ctx, []byte("project:\n  name: x\n"), cur.Checksum)
	if err != nil {
		t.Fatalf("UpdateContext: %v", err)
	}
	if got.Document.GetString("project.name") != "x" {
		t.Errorf("document = %v", got.Document)
	}
}
