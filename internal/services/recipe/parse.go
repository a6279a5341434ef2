package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotARecipe means the model looked at the content and reported that
	// it is not a recipe.
	ErrNotARecipe = errors.New("content is not a recipe")
	// ErrMalformedReply means the reply could not be read as a recipe object.
	ErrMalformedReply = errors.New("malformed model reply")
)

// Reply is the recipe object a model returns.
type Reply struct {
	Title       string
	Ingredients []string
	Steps       []string
	Language    string
}

// ParseReply reads a model reply, tolerating Markdown code fences and text
// around the JSON object. Missing fields stay empty.
func ParseReply(raw string) (*Reply, error) {
	fields, err := decodeObject(stripFences(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	if reason, ok := fields["error"]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNotARecipe, strings.Trim(string(reason), `"`))
	}

	reply := &Reply{}
	if v, ok := fields["title"]; ok {
		reply.Title = scalarString(v)
	}
	if v, ok := fields["language"]; ok {
		reply.Language = scalarString(v)
	}
	if reply.Ingredients, err = stringList(fields["ingredients"]); err != nil {
		return nil, fmt.Errorf("%w: ingredients: %v", ErrMalformedReply, err)
	}
	if reply.Steps, err = stringList(fields["steps"]); err != nil {
		return nil, fmt.Errorf("%w: steps: %v", ErrMalformedReply, err)
	}
	return reply, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func decodeObject(s string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(s), &fields)
	if err == nil {
		if fields == nil {
			return nil, errors.New("reply is null")
		}
		return fields, nil
	}

	// Some models wrap the object in a sentence.
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, err
	}
	if err2 := json.Unmarshal([]byte(s[start:end+1]), &fields); err2 != nil || fields == nil {
		return nil, err
	}
	return fields, nil
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

// stringList accepts a list of strings, numbers or {text|name} objects.
// null and a missing field both read as an empty list.
func stringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}

	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch t := item.(type) {
		case string:
			s = t
		case float64:
			s = fmt.Sprint(t)
		case map[string]any:
			if v, ok := t["text"].(string); ok {
				s = v
			} else if v, ok := t["name"].(string); ok {
				s = v
			}
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
