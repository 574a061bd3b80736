// Package validation checks job and candidate records at the engine boundary.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var jobSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"id", "title"},
	"properties": map[string]interface{}{
		"id":              map[string]interface{}{"type": "string", "minLength": 1},
		"title":           map[string]interface{}{"type": "string", "minLength": 1},
		"description":     map[string]interface{}{"type": "string"},
		"requirements":    map[string]interface{}{"type": "string"},
		"experienceLevel": map[string]interface{}{"type": "string"},
		"location":        map[string]interface{}{"type": "string"},
		"organizationId":  map[string]interface{}{"type": "string"},
	},
}

var candidateSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"id"},
	"properties": map[string]interface{}{
		"id":              map[string]interface{}{"type": "string", "minLength": 1},
		"skills":          map[string]interface{}{"type": "string"},
		"experienceYears": map[string]interface{}{"type": "integer", "minimum": 0},
		"seniority":       map[string]interface{}{"type": "string"},
		"education":       map[string]interface{}{"type": "string"},
		"location":        map[string]interface{}{"type": "string"},
	},
}

// ValidateJob checks a job record against its schema. The document is the
// record's JSON-compatible map form.
func ValidateJob(doc map[string]interface{}) error {
	return validate(jobSchema, doc)
}

// ValidateCandidate checks a candidate record against its schema.
func ValidateCandidate(doc map[string]interface{}) error {
	return validate(candidateSchema, doc)
}

func validate(schema, doc map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
