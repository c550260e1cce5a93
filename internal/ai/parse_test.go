package ai

import "testing"

func TestExtractJSONPlainObject(t *testing.T) {
	got, err := ExtractJSON(`{"title":"Mug"}`)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got != `{"title":"Mug"}` {
		t.Fatalf("unexpected extraction %q", got)
	}
}

func TestExtractJSONStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"title\":\"Mug\",\"slug\":\"mug\"}\n```"
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got != `{"title":"Mug","slug":"mug"}` {
		t.Fatalf("unexpected extraction %q", got)
	}
}

func TestExtractJSONIgnoresSurroundingCommentary(t *testing.T) {
	raw := "Here is the optimized content you asked for:\n{\"title\":\"Mug\"}\nLet me know if you need anything else."
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got != `{"title":"Mug"}` {
		t.Fatalf("unexpected extraction %q", got)
	}
}

func TestExtractJSONHandlesBracesInsideStrings(t *testing.T) {
	raw := `{"body":"use { and } freely, even \"quoted\" ones"}`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got != raw {
		t.Fatalf("unexpected extraction %q", got)
	}
}

func TestExtractJSONNestedObjects(t *testing.T) {
	raw := `prefix {"a":{"b":{"c":1}}} suffix`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got != `{"a":{"b":{"c":1}}}` {
		t.Fatalf("unexpected extraction %q", got)
	}
}

func TestExtractJSONErrors(t *testing.T) {
	cases := map[string]string{
		"no object":    "the model refused to answer",
		"unterminated": `{"title":"Mug"`,
		"invalid":      `{"title":}`,
	}
	for name, raw := range cases {
		if _, err := ExtractJSON(raw); err == nil {
			t.Fatalf("%s: expected error for %q", name, raw)
		}
	}
}
