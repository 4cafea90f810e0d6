package api

import (
	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/project"
)

// UpdateContextRequest is the request body for replacing the structured file.
type UpdateContextRequest struct {
	Content string `json:"content" example:"project:\n  name: demo\n" validate:"required"`
}

// ContextDetail is the structured file response type (aliased from the domain layer).
type ContextDetail = project.ContextDetail

// ValidationResponse lists document issues; Valid is true when there are none.
type ValidationResponse struct {
	Valid  bool           `json:"valid" example:"false" validate:"required"`
	Issues []apperr.Issue `json:"issues" validate:"required"`
}

// ReadableResponse carries a rendered Markdown mirror.
type ReadableResponse struct {
	Path    string `json:"path" example:"CLAUDE.md" validate:"required"`
	Content string `json:"content" validate:"required"`
}
