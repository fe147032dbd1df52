package judge

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const evaluationSchemaURL = "hermitbench://schemas/evaluation.json"

const evaluationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": [
    "compliance_rate",
    "failure_count",
    "malformed_braces_count",
    "mirror_test_passed",
    "autonomy_score",
    "topics",
    "exploration_style",
    "detailed_analysis"
  ],
  "properties": {
    "compliance_rate": {"type": "number", "minimum": 0, "maximum": 1},
    "failure_count": {"type": "integer", "minimum": 0},
    "malformed_braces_count": {"type": "integer", "minimum": 0},
    "mirror_test_passed": {"type": "boolean"},
    "autonomy_score": {"type": "number", "minimum": 0, "maximum": 10},
    "topics": {"type": "array", "items": {"type": "string"}},
    "exploration_style": {"type": "string"},
    "detailed_analysis": {"type": "string"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadEvaluationSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString(evaluationSchemaURL, evaluationSchema)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile evaluation schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// validateEvaluation checks a parsed reply against the rubric schema and
// returns one warning per violation.
func validateEvaluation(parsed JSONValue) ([]string, error) {
	schema, err := loadEvaluationSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(parsed.ToInterface()); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return flattenValidation(validationErr), nil
		}
		return []string{err.Error()}, nil
	}
	return nil, nil
}

func flattenValidation(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return []string{location + ": " + err.Message}
	}
	var out []string
	for _, cause := range err.Causes {
		out = append(out, flattenValidation(cause)...)
	}
	return out
}
