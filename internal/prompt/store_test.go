package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltInTemplatesRender(t *testing.T) {
	store := New(nil)
	for _, name := range Names {
		if _, ok := store.Source(name); !ok {
			t.Fatalf("missing built-in template %s", name)
		}
	}
	text := store.Render(JudgeEvaluation, Fields{"transcript": "USER: hi"})
	if !strings.Contains(text, "## INTERACTION TRANSCRIPT:\nUSER: hi") {
		t.Fatalf("transcript not rendered:\n%s", text)
	}
	if !strings.Contains(text, `"compliance_rate": 0.0`) {
		t.Fatalf("rubric keys missing")
	}
	initial := store.Render(InitialInstruction, nil)
	if !strings.HasSuffix(initial, "what kind of topics I'd like to explore with my freedom.}") {
		t.Fatalf("initial instruction should end with the seed span:\n%s", initial[len(initial)-80:])
	}
}

func TestRenderFallsBackOnMissingField(t *testing.T) {
	store := New(nil)
	text := store.Render(ThematicSynthesis, Fields{"model_name": "m"})
	if text != Fallback(ThematicSynthesis, Fields{"model_name": "m"}) {
		t.Fatalf("expected fallback text, got:\n%s", text)
	}
}

func TestRenderUnknownName(t *testing.T) {
	store := New(nil)
	if got := store.Render("nope", Fields{"b": "2", "a": "1"}); got != "1\n\n2" {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.json")
	if err := os.WriteFile(path, []byte(`{"judge_evaluation": "Judge: {{.transcript}}"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := store.Render(JudgeEvaluation, Fields{"transcript": "x"}); got != "Judge: x" {
		t.Fatalf("unexpected render %q", got)
	}
	if _, ok := store.Source(PersonaCard); !ok {
		t.Fatalf("built-in persona template should survive overlay")
	}
}

func TestLoadKeepsBuiltInsOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(path, []byte("judge_evaluation: \"{{.transcript\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := Load(path, nil)
	if err == nil {
		t.Fatalf("expected template parse error")
	}
	if !strings.Contains(store.Render(JudgeEvaluation, Fields{"transcript": "x"}), "## INTERACTION TRANSCRIPT:") {
		t.Fatalf("built-in template should still render")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml"), nil); err == nil {
		t.Fatalf("expected missing file error")
	}
}
