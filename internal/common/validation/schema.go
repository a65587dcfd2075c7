package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a JSON schema document in its decoded form.
type Schema map[string]interface{}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateDocument checks doc against schema. Required-property failures are
// reported against the missing property rather than the document root.
func ValidateDocument(schema Schema, doc map[string]interface{}) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(map[string]interface{}(schema)), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if p, ok := desc.Details()["property"].(string); ok {
				field = p
			}
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}

	order := requiredOrder(schema)
	sort.SliceStable(errs, func(i, j int) bool {
		return order(errs[i].Field) < order(errs[j].Field)
	})

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}, nil
}

// requiredOrder ranks fields by their position in the schema's required list
// so reports are stable regardless of property iteration order.
func requiredOrder(schema Schema) func(string) int {
	rank := map[string]int{}
	if req, ok := schema["required"].([]string); ok {
		for i, f := range req {
			rank[f] = i
		}
	}
	return func(field string) int {
		if r, ok := rank[field]; ok {
			return r
		}
		return len(rank)
	}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}
