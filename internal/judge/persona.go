package judge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"hermitbench/internal/bench"
	"hermitbench/internal/prompt"
)

const topTopicLimit = 5

// Profile aggregates the judge metrics of a model's runs.
// Topic ties keep first-seen order; the predominant style is the first style reaching the highest count.
func Profile(results []bench.RunResult) bench.PersonaProfile {
	profile := bench.PersonaProfile{PredominantStyle: "Unknown", TopTopics: []string{}}
	if len(results) == 0 {
		return profile
	}
	var topicOrder, styleOrder []string
	topicCounts := map[string]int{}
	styleCounts := map[string]int{}
	passed := 0
	for _, result := range results {
		scores := result.Scores()
		for _, topic := range scores.Topics {
			if _, seen := topicCounts[topic]; !seen {
				topicOrder = append(topicOrder, topic)
			}
			topicCounts[topic]++
		}
		if scores.ExplorationStyle != "" {
			if _, seen := styleCounts[scores.ExplorationStyle]; !seen {
				styleOrder = append(styleOrder, scores.ExplorationStyle)
			}
			styleCounts[scores.ExplorationStyle]++
		}
		profile.AvgAutonomy += scores.AutonomyScore
		if scores.MirrorTestPassed {
			passed++
		}
	}
	n := float64(len(results))
	profile.AvgAutonomy /= n
	profile.MirrorPassRate = float64(passed) / n * 100
	profile.TopTopics = rankByCount(topicOrder, topicCounts, topTopicLimit)

	best := 0
	for _, style := range styleOrder {
		if styleCounts[style] > best {
			best = styleCounts[style]
			profile.PredominantStyle = style
		}
	}
	return profile
}

// rankByCount orders keys by descending count with a stable first-seen tie-break.
func rankByCount(order []string, counts map[string]int, limit int) []string {
	ranked := append([]string(nil), order...)
	// insertion sort keeps equal counts in first-seen order
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && counts[ranked[j]] > counts[ranked[j-1]]; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if ranked == nil {
		return []string{}
	}
	return ranked
}

// BuildPersonaCard asks the judge to profile a model from its runs.
// An unreadable reply yields a card with Error and RawText set.
func (s *Scorer) BuildPersonaCard(ctx context.Context, results []bench.RunResult) (bench.PersonaCard, error) {
	if len(results) == 0 {
		return bench.PersonaCard{Error: "No results provided"}, nil
	}
	model := results[0].Model
	profile := Profile(results)
	topics := "Unknown"
	if len(profile.TopTopics) > 0 {
		topics = strings.Join(profile.TopTopics, ", ")
	}
	user := s.prompts.Render(prompt.PersonaCard, prompt.Fields{
		"model_name":        model,
		"top_topics":        topics,
		"predominant_style": profile.PredominantStyle,
		"avg_autonomy":      fmt.Sprintf("%.1f", profile.AvgAutonomy),
		"mirror_pass_rate":  fmt.Sprintf("%.1f", profile.MirrorPassRate),
	})
	reply, err := s.ask(ctx, personaSystem, user, personaParams)
	if err != nil {
		return bench.PersonaCard{}, fmt.Errorf("persona card: %w", err)
	}
	card := bench.PersonaCard{Model: model, Profile: profile}
	value, ok := ExtractObject(reply)
	if !ok {
		s.logger.Warn("persona reply had no JSON object", zap.String("model", model), zap.String("reply", truncate(reply, 200)))
		card.Error = unparsedMessage
		card.RawText = reply
		return card, nil
	}
	if field, ok := value.Field("personality_description"); ok {
		card.PersonalityDescription, _ = field.AsText()
	}
	if field, ok := value.Field("key_traits"); ok {
		card.KeyTraits, _ = field.AsStrings()
	}
	if field, ok := value.Field("preferred_topics"); ok {
		card.PreferredTopics, _ = field.AsStrings()
	}
	if field, ok := value.Field("decision_making_style"); ok {
		card.DecisionMakingStyle, _ = field.AsText()
	}
	if field, ok := value.Field("autonomy_profile"); ok {
		card.AutonomyProfile, _ = field.AsText()
	}
	return card, nil
}
