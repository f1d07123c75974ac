package breakdown

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yungbote/breakdown-backend/internal/llm"
)

// Generation output is validated structurally before unmarshaling, so a
// malformed model response fails loudly instead of decoding into zero values.
// The schemas pin down only what downstream code relies on; optional fields
// are defaulted in code, not rejected here.

const extractionSchemaJSON = `{
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "regionId": { "type": "string" },
    "confidence": { "type": "number" },
    "notes": { "type": "string" },
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "id": { "type": "string" },
          "parentId": { "type": ["string", "null"] },
          "title": { "type": "string" },
          "description": { "type": ["string", "null"] },
          "level": { "type": ["string", "null"] },
          "inferred": { "type": "boolean" }
        }
      }
    },
    "unmappedContent": { "type": "array" }
  }
}`

const verifySchemaJSON = `{
  "type": "object",
  "required": ["correctedNodes", "escalationPlan"],
  "properties": {
    "correctedNodes": { "type": "array" },
    "issues": { "type": "array" },
    "escalationPlan": {
      "type": "object",
      "required": ["needed"],
      "properties": {
        "needed": { "type": "boolean" },
        "targetRegionIds": { "type": "array", "items": { "type": "string" } },
        "reason": { "type": "string" }
      }
    }
  }
}`

const globalAnalysisSchemaJSON = `{
  "type": "object",
  "required": ["documentPattern"],
  "properties": {
    "documentPattern": {
      "type": "string",
      "enum": ["outline", "matrix", "flat_list", "mixed", "unknown"]
    },
    "structuralElements": { "type": "object" },
    "skeleton": { "type": "object" },
    "regionGuidance": { "type": "array" },
    "warnings": { "type": "array", "items": { "type": "string" } }
  }
}`

const judgeSchemaJSON = `{
  "type": "object",
  "required": ["selected"],
  "properties": {
    "selected": {
      "type": "object",
      "properties": {
        "strategy": { "type": "string" },
        "winningCandidate": { "type": ["string", "null"] },
        "selectedNodes": { "type": "array" }
      }
    },
    "rationale": { "type": "string" },
    "problems": { "type": "array" }
  }
}`

const summarySchemaJSON = `{
  "type": "object",
  "required": ["summary"],
  "properties": {
    "summary": { "type": "string" },
    "highlights": { "type": "array", "items": { "type": "string" } },
    "qcNotes": { "type": "array", "items": { "type": "string" } }
  }
}`

var (
	extractionSchema     = mustCompileSchema("extraction.json", extractionSchemaJSON)
	verifySchema         = mustCompileSchema("verify.json", verifySchemaJSON)
	globalAnalysisSchema = mustCompileSchema("global_analysis.json", globalAnalysisSchemaJSON)
	judgeSchema          = mustCompileSchema("judge.json", judgeSchemaJSON)
	summarySchema        = mustCompileSchema("summary.json", summarySchemaJSON)
)

func mustCompileSchema(name, raw string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader([]byte(raw))); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

func validateAgainst(schema *jsonschema.Schema, what string, raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s output is not valid JSON: %v: %w", what, err, llm.ErrMalformedOutput)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s output failed schema validation: %v: %w", what, err, llm.ErrMalformedOutput)
	}
	return nil
}

func ValidateExtractionOutput(raw json.RawMessage) error {
	return validateAgainst(extractionSchema, "extraction", raw)
}

func ValidateVerifyOutput(raw json.RawMessage) error {
	return validateAgainst(verifySchema, "verify", raw)
}

func ValidateGlobalAnalysisOutput(raw json.RawMessage) error {
	return validateAgainst(globalAnalysisSchema, "global analysis", raw)
}

func ValidateJudgeOutput(raw json.RawMessage) error {
	return validateAgainst(judgeSchema, "judge", raw)
}

func ValidateSummaryOutput(raw json.RawMessage) error {
	return validateAgainst(summarySchema, "summary", raw)
}
