package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// rulesetSchema is the JSON Schema every loaded ruleset document must
// satisfy before it is installed.
const rulesetSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://guardline-hq.dev/bastion/ruleset.schema.json",
  "title": "Bastion ruleset",
  "type": "object",
  "required": ["rules"],
  "properties": {
    "version": {
      "type": "integer",
      "minimum": 1
    },
    "name": {
      "type": "string"
    },
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {
            "type": "string",
            "minLength": 1
          },
          "type": {
            "type": "string"
          },
          "enabled": {
            "type": ["boolean", "null"]
          },
          "order_number": {
            "type": "integer"
          },
          "threshold": {
            "type": ["number", "null"]
          },
          "config": {
            "type": ["object", "null"]
          },
          "action": {
            "type": "object",
            "properties": {
              "type": {
                "type": "string",
                "enum": ["block", "flag", "monitoring"]
              }
            }
          }
        }
      }
    }
  }
}`

// Validator checks ruleset documents against the embedded JSON Schema and
// the package's semantic rules.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(rulesetSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("ruleset.schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("ruleset.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks one document. The path parameter is only used in error
// messages. Schema violations and semantic issues are combined into a
// single *ValidationError.
func (v *Validator) Validate(path string, doc *Document) error {
	// Round-trip through YAML to get the plain map/slice shape the schema
	// library validates.
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return &LoadError{Path: path, Cause: err}
	}
	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return &LoadError{Path: path, Cause: err}
	}

	var issues []string
	if err := v.schema.Validate(generic); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			issues = append(issues, flattenSchemaError(ve)...)
		} else {
			issues = append(issues, err.Error())
		}
	}

	if err := doc.Validate(); err != nil {
		var sve *ValidationError
		if errors.As(err, &sve) {
			issues = append(issues, sve.Issues...)
		} else {
			issues = append(issues, err.Error())
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Path: path, Issues: issues}
	}
	return nil
}

// flattenSchemaError walks the validation error tree into flat messages.
func flattenSchemaError(err *jsonschema.ValidationError) []string {
	var out []string

	loc := strings.Join(err.InstanceLocation, ".")
	if loc == "" {
		loc = "(root)"
	}
	out = append(out, fmt.Sprintf("%s: %s", loc, err.Error()))

	for _, cause := range err.Causes {
		out = append(out, flattenSchemaError(cause)...)
	}
	return out
}
