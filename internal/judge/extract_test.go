package judge

import "testing"

func TestExtractObject(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		key   string
		value string
		ok    bool
	}{
		{name: "whole text", text: ` {"k": "v"} `, key: "k", value: "v", ok: true},
		{name: "fenced", text: "intro\n```json\n{\"k\": \"fenced\"}\n```", key: "k", value: "fenced", ok: true},
		{name: "bare fence", text: "```\n{\"k\": \"bare\"}\n```", key: "k", value: "bare", ok: true},
		{name: "embedded nested", text: `prefix {"k": "outer", "inner": {"a": 1}} suffix`, key: "k", value: "outer", ok: true},
		{name: "brace in string", text: `note {"k": "has } brace"} end`, key: "k", value: "has } brace", ok: true},
		{name: "skips invalid candidate", text: `{not json} then {"k": "second"}`, key: "k", value: "second", ok: true},
		{name: "array only", text: `[1, 2, 3]`, ok: false},
		{name: "nothing", text: "plain words", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			value, ok := ExtractObject(tc.text)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			field, found := value.Field(tc.key)
			if !found {
				t.Fatalf("missing key %q", tc.key)
			}
			if text, _ := field.AsText(); text != tc.value {
				t.Fatalf("value = %q, want %q", text, tc.value)
			}
		})
	}
}

func TestJSONValueCoercion(t *testing.T) {
	value, ok := ExtractObject(`{"pct": "80%", "num": "2.5", "flag": "no", "list": ["a", 3, ""]}`)
	if !ok {
		t.Fatalf("expected object")
	}
	pct, _ := value.Field("pct")
	if n, ok := pct.AsFloat(); !ok || n != 80 {
		t.Fatalf("pct = %v %v", n, ok)
	}
	num, _ := value.Field("num")
	if n, ok := num.AsFloat(); !ok || n != 2.5 {
		t.Fatalf("num = %v %v", n, ok)
	}
	flag, _ := value.Field("flag")
	if b, ok := flag.AsBool(); !ok || b {
		t.Fatalf("flag = %v %v", b, ok)
	}
	list, _ := value.Field("list")
	items, ok := list.AsStrings()
	if !ok || len(items) != 2 || items[1] != "3" {
		t.Fatalf("list = %v %v", items, ok)
	}
}
