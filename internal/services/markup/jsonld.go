package markup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ldObject is a JSON object that remembers key order, so a depth-first search
// for the Recipe node visits nested values in document order.
type ldObject struct {
	keys   []string
	values map[string]any
}

func (o *ldObject) get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *ldObject) str(key string) string {
	s, _ := o.values[key].(string)
	return s
}

// decodeLD parses one JSON-LD block. Numbers stay json.Number.
func decodeLD(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return decodeLDValue(dec)
}

func decodeLDValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &ldObject{values: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeLDValue(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.values[key]; !dup {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		var arr []any
		for dec.More() {
			val, err := decodeLDValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// findRecipeNode walks graphs, arrays and nested objects depth-first and
// returns the first object typed as a Recipe.
func findRecipeNode(v any) *ldObject {
	switch t := v.(type) {
	case *ldObject:
		if isRecipeType(t.values["@type"]) {
			return t
		}
		if graph, ok := t.get("@graph"); ok {
			if found := findRecipeNode(graph); found != nil {
				return found
			}
		}
		for _, k := range t.keys {
			if k == "@graph" {
				continue
			}
			if found := findRecipeNode(t.values[k]); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range t {
			if found := findRecipeNode(item); found != nil {
				return found
			}
		}
	}
	return nil
}

func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return isRecipeTypeName(t)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && isRecipeTypeName(s) {
				return true
			}
		}
	}
	return false
}

func isRecipeTypeName(s string) bool {
	return s == "Recipe" || strings.HasSuffix(s, "/Recipe") || s == "schema:Recipe"
}
