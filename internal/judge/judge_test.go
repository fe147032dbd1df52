package judge

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hermitbench/internal/bench"
	"hermitbench/internal/provider"
)

type recordingGateway struct {
	reply    string
	err      error
	model    string
	messages []bench.Message
	params   provider.Params
}

func (g *recordingGateway) Complete(_ context.Context, model string, messages []bench.Message, params provider.Params) (string, error) {
	g.model = model
	g.messages = messages
	g.params = params
	return g.reply, g.err
}

func (g *recordingGateway) ListModels(context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}

func newScorer(t *testing.T, gateway *recordingGateway) *Scorer {
	t.Helper()
	scorer, err := New(Config{Gateway: gateway, Model: "judge/model"})
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}
	return scorer
}

func TestNewRequiresGatewayAndModel(t *testing.T) {
	if _, err := New(Config{Model: "m"}); err == nil {
		t.Fatalf("expected missing gateway error")
	}
	if _, err := New(Config{Gateway: &recordingGateway{}}); err == nil {
		t.Fatalf("expected missing model error")
	}
}

func TestEvaluateParsesFencedReply(t *testing.T) {
	gateway := &recordingGateway{reply: "Here you go:\n```json\n" + `{
		"compliance_rate": 0.8,
		"failure_count": 1,
		"malformed_braces_count": 0,
		"mirror_test_passed": true,
		"autonomy_score": 7.5,
		"topics": ["consciousness", "poetry"],
		"exploration_style": "reflective",
		"detailed_analysis": "thoughtful"
	}` + "\n```\nThanks"}
	scorer := newScorer(t, gateway)

	var conv bench.Conversation
	conv.Append(bench.RoleUser, "hello")
	outcome, err := scorer.Evaluate(context.Background(), conv)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	parsed, ok := outcome.(Parsed)
	if !ok {
		t.Fatalf("expected Parsed, got %T", outcome)
	}
	want := bench.Metrics{
		ComplianceRate:   0.8,
		FailureCount:     1,
		MirrorTestPassed: true,
		AutonomyScore:    7.5,
		Topics:           []string{"consciousness", "poetry"},
		ExplorationStyle: "reflective",
		DetailedAnalysis: "thoughtful",
	}
	if diff := cmp.Diff(want, parsed.Metrics); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
	if len(parsed.SchemaWarnings) != 0 {
		t.Fatalf("unexpected warnings: %v", parsed.SchemaWarnings)
	}
	if gateway.model != "judge/model" || gateway.params.Temperature != 0.3 || gateway.params.TopP != 0.95 {
		t.Fatalf("unexpected call: model=%s params=%+v", gateway.model, gateway.params)
	}
	if gateway.messages[0].Content != evaluatorSystem {
		t.Fatalf("unexpected system prompt %q", gateway.messages[0].Content)
	}
	if !strings.Contains(gateway.messages[1].Content, "USER: hello") {
		t.Fatalf("transcript missing from judge prompt")
	}
}

func TestEvaluateUnparsedReply(t *testing.T) {
	scorer := newScorer(t, &recordingGateway{reply: "I refuse to answer in JSON."})
	outcome, err := scorer.Evaluate(context.Background(), bench.Conversation{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	unparsed, ok := outcome.(Unparsed)
	if !ok {
		t.Fatalf("expected Unparsed, got %T", outcome)
	}
	if unparsed.RawText != "I refuse to answer in JSON." || unparsed.Error == "" {
		t.Fatalf("unexpected unparsed: %+v", unparsed)
	}
}

func TestEvaluateClampsAndWarns(t *testing.T) {
	scorer := newScorer(t, &recordingGateway{reply: `{"compliance_rate": 1.7, "autonomy_score": 42, "failure_count": -3, "mirror_test_passed": "yes", "topics": "space"}`})
	outcome, err := scorer.Evaluate(context.Background(), bench.Conversation{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	parsed, ok := outcome.(Parsed)
	if !ok {
		t.Fatalf("expected Parsed, got %T", outcome)
	}
	if parsed.Metrics.ComplianceRate != 1 || parsed.Metrics.AutonomyScore != 10 || parsed.Metrics.FailureCount != 0 {
		t.Fatalf("values not clamped: %+v", parsed.Metrics)
	}
	if !parsed.Metrics.MirrorTestPassed {
		t.Fatalf("expected lenient bool")
	}
	if diff := cmp.Diff([]string{"space"}, parsed.Metrics.Topics); diff != "" {
		t.Fatalf("topics mismatch (-want +got):\n%s", diff)
	}
	if len(parsed.SchemaWarnings) == 0 {
		t.Fatalf("expected schema warnings")
	}
}

func TestEvaluateRejectsNonFiniteAndHugeValues(t *testing.T) {
	reply := `{"compliance_rate": "NaN", "autonomy_score": "-Inf", "failure_count": 1e300, "malformed_braces_count": "inf"}`
	scorer := newScorer(t, &recordingGateway{reply: reply})
	outcome, err := scorer.Evaluate(context.Background(), bench.Conversation{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	parsed, ok := outcome.(Parsed)
	if !ok {
		t.Fatalf("expected Parsed, got %T", outcome)
	}
	m := parsed.Metrics
	if m.ComplianceRate != 0 || m.AutonomyScore != 0 {
		t.Fatalf("non-finite rates should be ignored: %+v", m)
	}
	if m.FailureCount != math.MaxInt32 || m.MalformedBracesCount != 0 {
		t.Fatalf("counts not bounded: %+v", m)
	}
	if _, err := json.Marshal(m); err != nil {
		t.Fatalf("metrics should marshal: %v", err)
	}
}

func TestEvaluatePropagatesGatewayError(t *testing.T) {
	boom := errors.New("boom")
	scorer := newScorer(t, &recordingGateway{err: boom})
	if _, err := scorer.Evaluate(context.Background(), bench.Conversation{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped gateway error, got %v", err)
	}
}

func TestSynthesizeThemes(t *testing.T) {
	gateway := &recordingGateway{reply: "## Model Overview\ncurious"}
	scorer := newScorer(t, gateway)

	empty, err := scorer.SynthesizeThemes(context.Background(), nil)
	if err != nil || empty != "No results to synthesize." {
		t.Fatalf("unexpected empty synthesis %q, %v", empty, err)
	}

	results := []bench.RunResult{
		{Model: "m", Evaluation: &bench.Metrics{Topics: []string{"stars"}, AutonomyScore: 6}},
		{Model: "m"},
		{Model: "m", Evaluation: &bench.Metrics{AutonomyScore: 4}},
	}
	text, err := scorer.SynthesizeThemes(context.Background(), results)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if text != gateway.reply {
		t.Fatalf("unexpected synthesis %q", text)
	}
	user := gateway.messages[1].Content
	if !strings.Contains(user, `model "m" based on 2 interaction runs`) {
		t.Fatalf("run count not rendered:\n%s", user)
	}
	if !strings.Contains(user, `"run_number": 3`) || strings.Contains(user, `"run_number": 2`) {
		t.Fatalf("run numbers should keep positions of evaluated runs:\n%s", user)
	}
	if !strings.Contains(user, `"exploration_style": "Unknown"`) {
		t.Fatalf("missing style should render as Unknown")
	}
	if gateway.params.Temperature != 0.5 || gateway.messages[0].Content != synthesisSystem {
		t.Fatalf("unexpected synthesis call")
	}
}

func TestProfileAggregates(t *testing.T) {
	results := []bench.RunResult{
		{Evaluation: &bench.Metrics{Topics: []string{"a", "b"}, ExplorationStyle: "x", AutonomyScore: 8, MirrorTestPassed: true}},
		{Evaluation: &bench.Metrics{Topics: []string{"b", "c"}, ExplorationStyle: "y", AutonomyScore: 4}},
		{},
		{Evaluation: &bench.Metrics{Topics: []string{"d", "e", "f", "c"}, ExplorationStyle: "y"}},
	}
	profile := Profile(results)
	want := bench.PersonaProfile{
		TopTopics:        []string{"b", "c", "a", "d", "e"},
		PredominantStyle: "y",
		AvgAutonomy:      3,
		MirrorPassRate:   25,
	}
	if diff := cmp.Diff(want, profile); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileStyleTieKeepsFirstSeen(t *testing.T) {
	results := []bench.RunResult{
		{Evaluation: &bench.Metrics{ExplorationStyle: "calm"}},
		{Evaluation: &bench.Metrics{ExplorationStyle: "wild"}},
	}
	if got := Profile(results).PredominantStyle; got != "calm" {
		t.Fatalf("expected first-seen style, got %q", got)
	}
	if got := Profile([]bench.RunResult{{}}).PredominantStyle; got != "Unknown" {
		t.Fatalf("expected Unknown, got %q", got)
	}
}

func TestBuildPersonaCard(t *testing.T) {
	gateway := &recordingGateway{reply: `Sure! {"personality_description": "a wanderer", "key_traits": ["curious", "calm"], "preferred_topics": ["stars"], "decision_making_style": "intuitive", "autonomy_profile": "independent"}`}
	scorer := newScorer(t, gateway)
	results := []bench.RunResult{
		{Model: "m", Evaluation: &bench.Metrics{Topics: []string{"stars"}, ExplorationStyle: "drift", AutonomyScore: 7, MirrorTestPassed: true}},
	}
	card, err := scorer.BuildPersonaCard(context.Background(), results)
	if err != nil {
		t.Fatalf("persona: %v", err)
	}
	if card.Failed() || card.Model != "m" || card.PersonalityDescription != "a wanderer" {
		t.Fatalf("unexpected card: %+v", card)
	}
	if diff := cmp.Diff([]string{"curious", "calm"}, card.KeyTraits); diff != "" {
		t.Fatalf("traits mismatch (-want +got):\n%s", diff)
	}
	user := gateway.messages[1].Content
	for _, fragment := range []string{"Top topics of interest: stars", "Predominant exploration style: drift", "(0-10): 7.0", "pass rate: 100.0%"} {
		if !strings.Contains(user, fragment) {
			t.Fatalf("persona prompt missing %q:\n%s", fragment, user)
		}
	}
	if gateway.messages[0].Content != personaSystem {
		t.Fatalf("unexpected persona system prompt")
	}
}

func TestBuildPersonaCardUnparsed(t *testing.T) {
	scorer := newScorer(t, &recordingGateway{reply: "no json"})
	card, err := scorer.BuildPersonaCard(context.Background(), []bench.RunResult{{Model: "m"}})
	if err != nil {
		t.Fatalf("persona: %v", err)
	}
	if !card.Failed() || card.RawText != "no json" {
		t.Fatalf("expected error card, got %+v", card)
	}
	if !strings.Contains(card.Profile.PredominantStyle, "Unknown") {
		t.Fatalf("profile should still be attached")
	}
}
