package validate

import (
	"errors"
	"testing"

	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/document"
)

func issues(t *testing.T, err error) []apperr.Issue {
	t.Helper()
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if !errors.Is(err, apperr.ErrInvalidDocument) {
		t.Error("ValidationError should unwrap to ErrInvalidDocument")
	}
	return ve.Issues
}

func hasField(list []apperr.Issue, field string) bool {
	for _, is := range list {
		if is.Field == field {
			return true
		}
	}
	return false
}

func TestDocument_Valid(t *testing.T) {
	doc := document.Document{
		"project": map[string]any{"name": "demo", "goal": "None"},
		"stack":   map[string]any{"backend": "chi"},
		"scores":  map[string]any{"faf_score": "85%"},
		"extra":   []any{"allowed"},
	}
	if err := Document(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDocument_Issues(t *testing.T) {
	tests := []struct {
		name  string
		doc   document.Document
		field string
	}{
		{"missing project", document.Document{"stack": map[string]any{}}, "project"},
		{"project not mapping", document.Document{"project": "demo"}, "project"},
		{"missing name", document.Document{"project": map[string]any{"goal": "g"}}, "project.name"},
		{"blank name", document.Document{"project": map[string]any{"name": "  ", "goal": "g"}}, "project.name"},
		{"numeric name", document.Document{"project": map[string]any{"name": 42, "goal": "g"}}, "project.name"},
		{"missing goal", document.Document{"project": map[string]any{"name": "n"}}, "project.goal"},
		{"stack list", document.Document{"project": map[string]any{"name": "n", "goal": "g"}, "stack": []any{"go"}}, "stack"},
		{"score too high", document.Document{"project": map[string]any{"name": "n", "goal": "g"}, "scores": map[string]any{"faf_score": 140}}, "scores.faf_score"},
		{"score garbage", document.Document{"project": map[string]any{"name": "n", "goal": "g"}, "scores": map[string]any{"faf_score": "high"}}, "scores.faf_score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := issues(t, Document(tt.doc))
			if !hasField(got, tt.field) {
				t.Errorf("issues %v missing field %q", got, tt.field)
			}
		})
	}
}

func TestDocument_CollectsAll(t *testing.T) {
	got := issues(t, Document(document.Document{"project": map[string]any{}}))
	if !hasField(got, "project.name") || !hasField(got, "project.goal") {
		t.Errorf("expected both name and goal issues, got %v", got)
	}
}

func TestBytes(t *testing.T) {
	if err := Bytes([]byte("project:\n  name: demo\n  goal: ship\n")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	got := issues(t, Bytes([]byte("- not\n- a mapping\n")))
	if len(got) != 1 || got[0].Field != "" {
		t.Errorf("got %v", got)
	}
}
