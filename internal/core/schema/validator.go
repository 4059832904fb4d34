// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// checklistSchema is the structural contract for the checklist definition
// document. Referential checks (unique ids, known dependencies, known
// function names) happen after decoding; this catches shape errors early
// with readable messages.
const checklistSchema = `{
  "type": "object",
  "required": ["groups"],
  "properties": {
    "project": {"type": "string"},
    "dist_url_base": {"type": "string"},
    "prerequisites": {"type": "array", "items": {"type": "string"}},
    "templates": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "groups": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "title", "todos"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "in_rc_loop": {"type": "boolean"},
          "depends": {
            "anyOf": [
              {"type": "string"},
              {"type": "array", "items": {"type": "string"}}
            ]
          },
          "condition": {"type": "string"},
          "todos": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "title"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "title": {"type": "string", "minLength": 1},
                "description": {"type": "string"},
                "post_description": {"type": "string"},
                "types": {
                  "type": "array",
                  "items": {"enum": ["major", "minor", "bugfix"]}
                },
                "condition": {"type": "string"},
                "function": {"type": "string"},
                "links": {"type": "array", "items": {"type": "string"}},
                "depends": {
                  "anyOf": [
                    {"type": "string"},
                    {"type": "array", "items": {"type": "string"}}
                  ]
                },
                "vars": {"type": "object"},
                "persist_vars": {"type": "array", "items": {"type": "string"}},
                "user_input": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["name", "prompt"],
                    "properties": {
                      "name": {"type": "string", "minLength": 1},
                      "prompt": {"type": "string", "minLength": 1},
                      "type": {"enum": ["string", "int"]}
                    }
                  }
                },
                "commands": {
                  "type": "object",
                  "required": ["root_folder", "commands"],
                  "properties": {
                    "root_folder": {"type": "string", "minLength": 1},
                    "commands_text": {"type": "string"},
                    "run_text": {"type": "string"},
                    "logs_prefix": {"type": "string"},
                    "enable_execute": {"type": "boolean"},
                    "confirm_each_command": {"type": "boolean"},
                    "env": {"type": "object", "additionalProperties": {"type": "string"}},
                    "vars": {"type": "object"},
                    "remove_files": {"type": "array", "items": {"type": "string"}},
                    "commands": {
                      "type": "array",
                      "minItems": 1,
                      "items": {
                        "type": "object",
                        "required": ["cmd"],
                        "properties": {
                          "cmd": {"type": "string", "minLength": 1},
                          "cwd": {"type": "string"},
                          "comment": {"type": "string"},
                          "logfile": {"type": "string"},
                          "tee": {"type": "boolean"},
                          "live": {"type": "boolean"},
                          "stdout": {"type": "boolean"},
                          "shell": {"type": "boolean"},
                          "should_fail": {"type": "boolean"},
                          "redirect": {"type": "string"},
                          "redirect_append": {"type": "boolean"},
                          "vars": {"type": "object"}
                        }
                      }
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// ValidateChecklist validates a parsed checklist document against the
// structural schema. Any violation is a fatal configuration error.
func ValidateChecklist(doc interface{}) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("schema validation error: failed to serialize document: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(checklistSchema)
	documentLoader := gojsonschema.NewBytesLoader(docBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		errorMsg := "checklist validation failed:\n"
		for _, verr := range result.Errors() {
			errorMsg += fmt.Sprintf("- %s\n", verr)
		}
		return fmt.Errorf("%s", errorMsg)
	}

	return nil
}
