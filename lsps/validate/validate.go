// Package validate checks JSON-RPC request params against per-method schemas
package validate

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/flokiorg/lspd/lsps/common"
)

// Kind is the expected wire type of a request property.
type Kind int

const (
	// KindSatAmount is a satoshi amount encoded as a decimal string.
	KindSatAmount Kind = iota
	// KindUint is an unsigned JSON integer.
	KindUint
	KindBool
	KindString
)

// Field describes one request property.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Bits bounds a KindUint value; zero means 64.
	Bits int
}

// Schema describes the properties a method accepts. Field order is the order
// in which violations are reported.
type Schema struct {
	Fields []Field
}

// Validate checks params against the schema. Unrecognized properties are
// reported first, sorted, and take precedence over missing or malformed ones.
func (s *Schema) Validate(params json.RawMessage) *common.JsonRpcError {
	present := map[string]json.RawMessage{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &present); err != nil {
			return common.NewInvalidParamError("params", "params must be an object")
		}
	}

	known := map[string]bool{}
	for _, field := range s.Fields {
		known[field.Name] = true
	}

	unrecognized := []string{}
	for name := range present {
		if !known[name] {
			unrecognized = append(unrecognized, name)
		}
	}
	if len(unrecognized) > 0 {
		sort.Strings(unrecognized)
		return common.NewUnrecognizedParamsError(unrecognized)
	}

	for _, field := range s.Fields {
		raw, ok := present[field.Name]
		if !ok {
			if field.Required {
				return common.NewInvalidParamError(field.Name, "missing required property")
			}
			continue
		}
		if err := checkKind(field, raw); err != nil {
			return err
		}
	}

	return nil
}

func checkKind(field Field, raw json.RawMessage) *common.JsonRpcError {
	switch field.Kind {
	case KindSatAmount:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return common.NewInvalidParamError(field.Name, "must be a satoshi amount string")
		}
		if _, err := strconv.ParseUint(s, 10, 64); err != nil {
			return common.NewInvalidParamError(field.Name, "must be a satoshi amount string")
		}
	case KindUint:
		bits := field.Bits
		if bits == 0 {
			bits = 64
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return common.NewInvalidParamError(field.Name, "must be an unsigned integer")
		}
		if _, err := strconv.ParseUint(n.String(), 10, bits); err != nil {
			return common.NewInvalidParamError(field.Name, "must be an unsigned integer")
		}
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return common.NewInvalidParamError(field.Name, "must be a boolean")
		}
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return common.NewInvalidParamError(field.Name, "must be a string")
		}
	}
	return nil
}
