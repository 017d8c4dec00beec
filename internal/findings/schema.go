package findings

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// findingsSchema is the JSON Schema findings.json must satisfy before
// the orchestrator trusts it. Kept intentionally close to the shape
// record_finding/complete_review actually produce.
const findingsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["taskId", "sessionId", "summary", "approved", "findings"],
  "properties": {
    "taskId": {"type": "string", "minLength": 1},
    "sessionId": {"type": "string", "minLength": 1},
    "summary": {"type": "string"},
    "approved": {"type": "boolean"},
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "title", "description", "severity", "status"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string", "minLength": 1, "maxLength": 100},
          "description": {"type": "string"},
          "severity": {"enum": ["error", "warning", "info"]},
          "status": {"enum": ["pending", "fixed", "skipped"]},
          "filePath": {"type": "string"},
          "lineStart": {"type": "integer"},
          "lineEnd": {"type": "integer"}
        }
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}

	var doc any
	if err := json.Unmarshal([]byte(findingsSchema), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal findings schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("findings.json#schema", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := c.Compile("findings.json#schema")
	if err != nil {
		return nil, fmt.Errorf("compile findings schema: %w", err)
	}
	compiledSchema = s
	return s, nil
}

// Validate checks that f round-trips through the findings.json schema
// before the caller writes or trusts it.
func Validate(f types.ReviewFindings) error {
	s, err := schema()
	if err != nil {
		return err
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal findings: %w", err)
	}

	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("findings failed schema validation: %w", err)
	}
	return nil
}
