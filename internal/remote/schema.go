package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/leadscan/internal/lead"
)

// leadSchema only requires an object. Field values are coerced by toLead,
// so a numeric phone or a malformed social_media never drops the lead.
const leadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object"
}`

func compileLeadSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("lead.json", strings.NewReader(leadSchema)); err != nil {
		return nil, fmt.Errorf("failed to load lead schema: %w", err)
	}
	schema, err := compiler.Compile("lead.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile lead schema: %w", err)
	}
	return schema, nil
}

// toLead maps one decoded element onto a Lead. Number and bool scalars
// are stringified; arrays and objects in scalar fields are ignored, as is a
// social_media value that is not an object.
func toLead(doc map[string]any) lead.Lead {
	l := lead.Lead{
		Name:           scalar(doc["name"]),
		Company:        scalar(doc["company"]),
		Title:          scalar(doc["title"]),
		Email:          scalar(doc["email"]),
		Phone:          scalar(doc["phone"]),
		Address:        scalar(doc["address"]),
		Industry:       scalar(doc["industry"]),
		Website:        scalar(doc["website"]),
		AdditionalInfo: scalar(doc["additional_info"]),
	}
	if social, ok := doc["social_media"].(map[string]any); ok {
		for k, v := range social {
			if s := scalar(v); s != "" {
				if l.SocialMedia == nil {
					l.SocialMedia = make(map[string]string)
				}
				l.SocialMedia[k] = s
			}
		}
	}
	return l
}

func scalar(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// extractArray returns the text between the first '[' and the last ']',
// or the whole content when there is no such span.
func extractArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start != -1 && end > start {
		return content[start : end+1]
	}
	return content
}

// itemError describes an array element that is not a JSON object.
type itemError struct {
	Index int
	Err   error
}

// parseLeads decodes the structuring response. A non-nil error means the
// payload was not a JSON array at all; elements that are not objects are
// reported in skipped and left out of the result.
func parseLeads(schema *jsonschema.Schema, content string) (leads []lead.Lead, skipped []itemError, err error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(extractArray(content)), &items); err != nil {
		return nil, nil, fmt.Errorf("failed to parse leads JSON: %w", err)
	}

	leads = make([]lead.Lead, 0, len(items))
	for i, raw := range items {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			skipped = append(skipped, itemError{Index: i, Err: err})
			continue
		}
		if err := schema.Validate(doc); err != nil {
			skipped = append(skipped, itemError{Index: i, Err: err})
			continue
		}
		obj, ok := doc.(map[string]any)
		if !ok {
			skipped = append(skipped, itemError{Index: i, Err: fmt.Errorf("expected object, got %T", doc)})
			continue
		}
		leads = append(leads, toLead(obj))
	}
	return leads, skipped, nil
}
