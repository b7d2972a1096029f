package adminhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// criteriaPatchSchema mirrors the keys filter.ApplyPatch accepts.
const criteriaPatchSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "minProperties": 1,
  "additionalProperties": false,
  "definitions": {
    "amount": {"type": "number", "minimum": 0},
    "periods": {
      "type": "object",
      "propertyNames": {"enum": ["5m", "10m", "1h", "24h"]},
      "additionalProperties": {"type": ["number", "null"]}
    }
  },
  "properties": {
    "min_volume": {"$ref": "#/definitions/periods"},
    "min_volume_usd": {"$ref": "#/definitions/periods"},
    "min_price_change": {"$ref": "#/definitions/periods"},
    "min_liquidity": {"$ref": "#/definitions/amount"},
    "min_market_cap": {"$ref": "#/definitions/amount"},
    "max_market_cap": {"$ref": "#/definitions/amount"},
    "max_supply": {"$ref": "#/definitions/amount"},
    "max_creator_ownership": {"type": "number", "minimum": 0, "maximum": 100},
    "min_supply_traded": {"type": "number", "minimum": 0, "maximum": 100},
    "token_security": {"type": "boolean"},
    "scan_new_listings_only": {"type": "boolean"},
    "first_mint_date": {"type": "string", "minLength": 1},
    "chains": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
  }
}`

func compileSchema(raw string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("criteria_patch.json", strings.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile("criteria_patch.json")
}

// decodePatch validates body against the schema and returns it as a patch map.
func decodePatch(schema *jsonschema.Schema, body []byte) (map[string]any, error) {
	// jsonschema/v5 expects documents decoded with json.UseNumber().
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid json: unexpected data after top-level value")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, err
	}
	patch, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("patch must be a json object")
	}
	return patch, nil
}
