package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// ExtractedEntity is the shape LLM extraction prompts are asked to emit.
// Type id 1 is a person, 2 is a company.
type ExtractedEntity struct {
	EntityName   string `json:"entity_name"`
	EntityTypeID int    `json:"entity_type_id"`
}

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// StripCodeFences removes surrounding ```json / ``` fences from LLM output.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// GenerateSchema creates a JSON Schema from the given Go type.
// It uses reflection to inspect the type structure and generates
// a schema suitable for use with AI structured output.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

// UnmarshalFlexible attempts to unmarshal JSON into the target with multiple fallback strategies.
// It strips code fences, tries standard JSON unmarshaling, then handles double-encoded
// JSON strings, and finally attempts to repair malformed JSON before parsing.
//
// This is useful for parsing AI-generated JSON which may be malformed or wrapped in strings.
//
// Example:
//
//	var result MyStruct
//	// All of these inputs would work:
//	UnmarshalFlexible(`{"name": "test"}`, &result)           // standard JSON
//	UnmarshalFlexible(`"{\"name\": \"test\"}"`, &result)     // double-encoded
//	UnmarshalFlexible(`{name: "test"}`, &result)             // malformed (repaired)
func UnmarshalFlexible(input string, out any) error {
	input = StripCodeFences(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}

	if err := json.Unmarshal([]byte(repaired), out); err == nil {
		return nil
	}

	return fmt.Errorf(
		"unmarshal failed after repair: input=%s repaired=%s",
		input, repaired,
	)
}

var entityObjectRe = regexp.MustCompile(
	`\{\s*"entity_name"\s*:\s*"([^"]+)"\s*,\s*"entity_type_id"\s*:\s*(\d+)\s*\}`,
)

// ExtractEntityList parses an LLM entity-extraction response into a list of
// entities, tolerating the common failure modes: code fences, Markdown tables,
// loose objects outside an array, and malformed JSON. On total failure it
// returns an empty list rather than an error; extraction callers treat a
// garbled response the same as "no entities found".
func ExtractEntityList(input string) []ExtractedEntity {
	text := StripCodeFences(input)

	if converted, ok := convertEntityTable(text); ok {
		text = converted
	} else if wrapped, ok := wrapLooseEntityObjects(text); ok {
		text = wrapped
	}

	var entities []ExtractedEntity
	if err := UnmarshalFlexible(text, &entities); err == nil {
		return entities
	}

	// Some models emit a single object instead of an array.
	var single ExtractedEntity
	if err := UnmarshalFlexible(text, &single); err == nil && single.EntityName != "" {
		return []ExtractedEntity{single}
	}

	for _, m := range entityObjectRe.FindAllStringSubmatch(text, -1) {
		typeID := 1
		fmt.Sscanf(m[2], "%d", &typeID)
		entities = append(entities, ExtractedEntity{
			EntityName:   m[1],
			EntityTypeID: typeID,
		})
	}
	if entities == nil {
		entities = []ExtractedEntity{}
	}
	return entities
}

// convertEntityTable turns a Markdown table whose header mentions "Entity"
// into a JSON array of extracted entities. Rows are expected to carry the
// name in the first column and the type in the second.
func convertEntityTable(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "|") && strings.Contains(strings.ToLower(line), "entity") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return "", false
	}

	var entities []ExtractedEntity
	for _, line := range lines[headerIdx+1:] {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "|") {
			continue
		}
		cells := splitTableRow(line)
		if len(cells) < 2 {
			continue
		}
		// Skip the |---|---| separator row.
		if strings.Trim(cells[0], "-: ") == "" {
			continue
		}
		name := cells[0]
		if name == "" {
			continue
		}
		typeID := 1
		switch strings.ToLower(cells[1]) {
		case "company", "organization", "org", "2":
			typeID = 2
		}
		entities = append(entities, ExtractedEntity{EntityName: name, EntityTypeID: typeID})
	}
	if len(entities) == 0 {
		return "", false
	}

	encoded, err := json.Marshal(entities)
	if err != nil {
		return "", false
	}
	return string(encoded), true
}

func splitTableRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// wrapLooseEntityObjects joins multiple bare {"entity_name": …} objects into
// a JSON array when the model forgot the surrounding brackets.
func wrapLooseEntityObjects(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		return "", false
	}
	matches := entityObjectRe.FindAllString(trimmed, -1)
	if len(matches) < 2 {
		return "", false
	}
	return "[" + strings.Join(matches, ",") + "]", true
}
