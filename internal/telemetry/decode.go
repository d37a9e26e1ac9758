// Package telemetry validates JSON payloads uploaded by client devices:
// wearable health samples, application usage logs and study sessions.
//
// Each payload is a JSON object holding one array of records. A payload that
// is not valid JSON, or whose shape is wrong, fails as a whole. Individual
// records that fail validation are dropped without affecting the others.
package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Record array field of each payload kind.
const (
	healthField   = "metrics"
	appUsageField = "logs"
	studyField    = "sessions"
)

var (
	healthSchema   = mustCompileShape(healthField)
	appUsageSchema = mustCompileShape(appUsageField)
	studySchema    = mustCompileShape(studyField)
)

// mustCompileShape builds the schema for a top-level object whose records
// field, when present, is an array.
func mustCompileShape(field string) *jsonschema.Schema {
	schema := fmt.Sprintf(`{"type":"object","properties":{%q:{"type":"array"}}}`, field)
	url := field + ".json"

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("add %s schema: %v", field, err))
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", field, err))
	}
	return compiled
}

// payload is a decoded top-level object. Numbers are json.Number.
type payload struct {
	fields  map[string]interface{}
	records []interface{}
}

// decodePayload parses content and checks its top-level shape.
func decodePayload(content []byte, field string, schema *jsonschema.Schema) (*payload, error) {
	if !utf8.Valid(content) {
		return nil, errors.New("JSON decode error: invalid UTF-8")
	}

	v, err := decodeJSON(content)
	if err != nil {
		return nil, fmt.Errorf("JSON decode error: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, errors.New("expected a JSON object at the top level")
		}
		if _, ok := obj[field].([]interface{}); !ok {
			return nil, fmt.Errorf("'%s' field must be a list", field)
		}
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	obj := v.(map[string]interface{})
	p := &payload{fields: obj}
	if records, ok := obj[field].([]interface{}); ok {
		p.records = records
	}
	return p, nil
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(content []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after top-level value")
	}
	return v, nil
}

// optionalString returns the value of key when it is a JSON string.
func optionalString(obj map[string]interface{}, key string) *string {
	if s, ok := obj[key].(string); ok {
		return &s
	}
	return nil
}

// integer returns the value of key when it is a JSON integer that fits in an int.
func integer(obj map[string]interface{}, key string) (int, bool) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int(i), true
}

// scalarString stringifies a JSON value: strings verbatim, numbers by their
// literal text, booleans as true/false and anything else re-encoded.
func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// truthy follows the usual loose truthiness of JSON values.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	return true
}
