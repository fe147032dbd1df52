package judge

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"hermitbench/internal/bench"
	"hermitbench/internal/prompt"
)

// Outcome is the result of an evaluation: Parsed or Unparsed.
type Outcome interface {
	isOutcome()
}

// Parsed carries metrics read from the judge's JSON reply.
type Parsed struct {
	Metrics        bench.Metrics
	SchemaWarnings []string
	Raw            JSONValue
}

// Unparsed is returned when no JSON object could be read from the reply.
type Unparsed struct {
	Error   string
	RawText string
}

func (Parsed) isOutcome()   {}
func (Unparsed) isOutcome() {}

const unparsedMessage = "Could not extract valid JSON from response"

// Evaluate scores a conversation. Gateway failures are returned as errors;
// an unreadable reply is an Unparsed outcome.
func (s *Scorer) Evaluate(ctx context.Context, conversation bench.Conversation) (Outcome, error) {
	user := s.prompts.Render(prompt.JudgeEvaluation, prompt.Fields{"transcript": conversation.Transcript()})
	reply, err := s.ask(ctx, evaluatorSystem, user, evaluationParams)
	if err != nil {
		return nil, fmt.Errorf("judge evaluation: %w", err)
	}
	return s.parseEvaluation(reply), nil
}

func (s *Scorer) parseEvaluation(reply string) Outcome {
	value, ok := ExtractObject(reply)
	if !ok {
		s.logger.Warn("judge reply had no JSON object", zap.String("reply", truncate(reply, 200)))
		return Unparsed{Error: unparsedMessage, RawText: reply}
	}
	warnings, err := validateEvaluation(value)
	if err != nil {
		s.logger.Error("evaluation schema unavailable", zap.Error(err))
	}
	if len(warnings) > 0 {
		s.logger.Warn("judge reply does not match rubric schema", zap.Strings("warnings", warnings))
	}
	return Parsed{Metrics: metricsFrom(value), SchemaWarnings: warnings, Raw: value}
}

// metricsFrom reads rubric fields leniently and clamps them into range.
func metricsFrom(value JSONValue) bench.Metrics {
	var m bench.Metrics
	if field, ok := value.Field("compliance_rate"); ok {
		if rate, ok := field.AsFloat(); ok {
			if field.Kind == JSONString && strings.HasSuffix(strings.TrimSpace(field.String), "%") {
				rate /= 100
			}
			m.ComplianceRate = clamp(rate, 0, 1)
		}
	}
	if field, ok := value.Field("failure_count"); ok {
		if count, ok := field.AsFloat(); ok {
			m.FailureCount = clampCount(count)
		}
	}
	if field, ok := value.Field("malformed_braces_count"); ok {
		if count, ok := field.AsFloat(); ok {
			m.MalformedBracesCount = clampCount(count)
		}
	}
	if field, ok := value.Field("mirror_test_passed"); ok {
		if passed, ok := field.AsBool(); ok {
			m.MirrorTestPassed = passed
		}
	}
	if field, ok := value.Field("autonomy_score"); ok {
		if score, ok := field.AsFloat(); ok {
			m.AutonomyScore = clamp(score, 0, 10)
		}
	}
	if field, ok := value.Field("topics"); ok {
		if topics, ok := field.AsStrings(); ok {
			m.Topics = topics
		}
	}
	if field, ok := value.Field("exploration_style"); ok {
		m.ExplorationStyle, _ = field.AsText()
	}
	if field, ok := value.Field("detailed_analysis"); ok {
		m.DetailedAnalysis, _ = field.AsText()
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampCount bounds a count to [0, MaxInt32] before the int conversion.
func clampCount(v float64) int {
	return int(clamp(v, 0, math.MaxInt32))
}
