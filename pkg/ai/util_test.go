package ai

import (
	"reflect"
	"testing"
)

func TestUnmarshalFlexible(t *testing.T) {
	type sample struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name  string
		input string
		want  sample
	}{
		{"standard json", `{"name": "test"}`, sample{Name: "test"}},
		{"double encoded", `"{\"name\": \"test\"}"`, sample{Name: "test"}},
		{"unquoted keys", `{name: "test"}`, sample{Name: "test"}},
		{"single quotes", `{'name': 'test'}`, sample{Name: "test"}},
		{"trailing comma", `{"name": "test",}`, sample{Name: "test"}},
		{"duplicate brace", `{{"name": "test"}`, sample{Name: "test"}},
		{"code fence", "```json\n{\"name\": \"test\"}\n```", sample{Name: "test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sample
			if err := UnmarshalFlexible(tt.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("UnmarshalFlexible(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence same line", "```{\"a\":1}```", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.input); got != tt.want {
				t.Fatalf("StripCodeFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractEntityList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []ExtractedEntity
	}{
		{
			name:  "clean array",
			input: `[{"entity_name":"John Chen","entity_type_id":1},{"entity_name":"TechCorp","entity_type_id":2}]`,
			want: []ExtractedEntity{
				{EntityName: "John Chen", EntityTypeID: 1},
				{EntityName: "TechCorp", EntityTypeID: 2},
			},
		},
		{
			name:  "fenced array",
			input: "```json\n[{\"entity_name\":\"TechCorp\",\"entity_type_id\":2}]\n```",
			want:  []ExtractedEntity{{EntityName: "TechCorp", EntityTypeID: 2}},
		},
		{
			name:  "loose objects",
			input: `{"entity_name":"John Chen","entity_type_id":1} {"entity_name":"TechCorp","entity_type_id":2}`,
			want: []ExtractedEntity{
				{EntityName: "John Chen", EntityTypeID: 1},
				{EntityName: "TechCorp", EntityTypeID: 2},
			},
		},
		{
			name:  "single object",
			input: `{"entity_name":"DataFlow","entity_type_id":2}`,
			want:  []ExtractedEntity{{EntityName: "DataFlow", EntityTypeID: 2}},
		},
		{
			name: "markdown table",
			input: "| Entity | Type |\n" +
				"|--------|------|\n" +
				"| John Chen | Person |\n" +
				"| TechCorp | Company |",
			want: []ExtractedEntity{
				{EntityName: "John Chen", EntityTypeID: 1},
				{EntityName: "TechCorp", EntityTypeID: 2},
			},
		},
		{
			name:  "regex fallback",
			input: `The entities are: {"entity_name":"John Chen","entity_type_id":1} and that is all.`,
			want:  []ExtractedEntity{{EntityName: "John Chen", EntityTypeID: 1}},
		},
		{
			name:  "garbage",
			input: "I could not find any entities in the text, sorry!",
			want:  []ExtractedEntity{},
		},
		{
			name:  "empty",
			input: "",
			want:  []ExtractedEntity{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractEntityList(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ExtractEntityList(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
