// Package validate checks a project document against the schema rules the
// score calculator and the mirror rely on.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/document"
)

var (
	errNotMapping = validation.NewError("validation_not_mapping", "must be a mapping")
	errNotString  = validation.NewError("validation_not_string", "must be a string")
	errBlank      = validation.NewError("validation_blank", "cannot be blank")
	errScoreRange = validation.NewError("validation_score_range", "must be an integer or percentage between 0 and 100")
)

// mapping accepts a nested mapping and validates its keys. A null section
// passes unless required is set.
func mapping(required bool, rules ...*validation.KeyRules) validation.Rule {
	return validation.By(func(v any) error {
		if v == nil {
			if required {
				return errNotMapping
			}
			return nil
		}
		m, ok := v.(map[string]any)
		if !ok {
			return errNotMapping
		}
		if len(rules) == 0 {
			return nil
		}
		return validation.Validate(m, validation.Map(rules...).AllowExtraKeys())
	})
}

func isString(v any) error {
	if _, ok := v.(string); !ok {
		return errNotString
	}
	return nil
}

func notBlank(v any) error {
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return errBlank
	}
	return nil
}

func scoreInRange(v any) error {
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case string:
		p, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		if err != nil {
			return errScoreRange
		}
		n = p
	default:
		return errScoreRange
	}
	if n < 0 || n > 100 {
		return errScoreRange
	}
	return nil
}

// Document validates doc and returns *apperr.ValidationError listing every
// issue, or nil.
func Document(doc document.Document) error {
	err := validation.Validate(map[string]any(doc),
		validation.Map(
			validation.Key("project", mapping(true,
				validation.Key("name",
					validation.Required,
					validation.By(isString),
					validation.By(notBlank),
					validation.Length(1, 100),
				),
				validation.Key("goal",
					validation.Required,
					validation.By(isString),
					validation.By(notBlank),
				),
			)),
			validation.Key("human_context", mapping(false)).Optional(),
			validation.Key("stack", mapping(false)).Optional(),
			validation.Key("instant_context", mapping(false)).Optional(),
			validation.Key("scores", mapping(false,
				validation.Key("faf_score", validation.By(scoreInRange)).Optional(),
			)).Optional(),
		).AllowExtraKeys(),
	)
	if err == nil {
		return nil
	}
	var ie validation.InternalError
	if errors.As(err, &ie) {
		return fmt.Errorf("validate: %w", err)
	}
	return &apperr.ValidationError{Issues: flatten("", err)}
}

// Bytes parses raw and validates the result. Parse failures are reported as
// a single issue.
func Bytes(raw []byte) error {
	doc, err := document.Parse(raw)
	if err != nil {
		return &apperr.ValidationError{Issues: []apperr.Issue{{Message: err.Error()}}}
	}
	return Document(doc)
}

func flatten(prefix string, err error) []apperr.Issue {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []apperr.Issue{{Field: prefix, Message: err.Error()}}
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []apperr.Issue
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		out = append(out, flatten(path, errs[k])...)
	}
	return out
}
