// internal/knowledge/load.go
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"

	apperrors "rehmat-agent/internal/common/errors"
	"rehmat-agent/internal/common/validation"
)

// Schema describes the accepted knowledge file shape. Violations are only
// reported; Load decodes whatever it can.
const Schema = `{
  "type": "object",
  "properties": {
    "business_info": {
      "type": "object",
      "properties": {
        "business_name": {"type": ["string", "number", "null"]},
        "business_description": {"type": ["string", "null"]},
        "operating_hours": {"type": "object"},
        "official_addresses": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "address_type": {"type": ["string", "null"]},
              "location": {"type": ["string", "null"]}
            }
          }
        }
      }
    },
    "products": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "price"],
        "properties": {
          "name": {"type": ["string", "number"]},
          "category": {"type": ["string", "null"]},
          "price": {"type": ["string", "number"]},
          "description": {"type": ["string", "null"]},
          "sizes": {
            "type": "array",
            "items": {"type": ["string", "object"]}
          }
        }
      }
    }
  }
}`

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Load reads and decodes the knowledge file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewKnowledgeLoadFailedError(path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, apperrors.NewKnowledgeLoadFailedError(path, err)
	}
	return doc, nil
}

// Parse decodes a knowledge document from raw JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge: %w", err)
	}
	return &doc, nil
}

// LoadOrEmpty never fails: any read or decode error is logged and an empty
// document is returned. With validateSchema set, schema violations are
// logged as warnings.
func LoadOrEmpty(path string, log Logger, validateSchema bool) *Document {
	doc, err := Load(path)
	if err != nil {
		log.Error("Failed to load knowledge base", map[string]interface{}{
			"path":  path,
			"error": err,
		})
		return &Document{}
	}

	if validateSchema {
		for _, msg := range SchemaViolations(path) {
			log.Warn("Knowledge base schema violation", map[string]interface{}{
				"path":      path,
				"violation": msg,
			})
		}
	}

	log.Info("Knowledge base loaded", map[string]interface{}{
		"path":      path,
		"products":  len(doc.Products),
		"locations": len(doc.BusinessInfo.OfficialAddresses),
	})
	return doc
}

// SchemaViolations validates the file at path against Schema and returns
// one message per violation.
func SchemaViolations(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{err.Error()}
	}
	v, err := validation.NewValidator(Schema)
	if err != nil {
		return []string{err.Error()}
	}
	res, err := v.ValidateJSON(data)
	if err != nil {
		return []string{err.Error()}
	}
	return res.GetErrorMessages()
}
