package bench

// PersonaProfile carries the aggregates a persona card is derived from.
type PersonaProfile struct {
	TopTopics        []string `json:"top_topics"`
	PredominantStyle string   `json:"predominant_style"`
	AvgAutonomy      float64  `json:"avg_autonomy"`
	MirrorPassRate   float64  `json:"mirror_pass_rate"`
}

// PersonaCard is the judge's personality profile of a model.
// A failed card carries Error and, when the judge replied, RawText.
type PersonaCard struct {
	Model                  string         `json:"model_name"`
	PersonalityDescription string         `json:"personality_description,omitempty"`
	KeyTraits              []string       `json:"key_traits,omitempty"`
	PreferredTopics        []string       `json:"preferred_topics,omitempty"`
	DecisionMakingStyle    string         `json:"decision_making_style,omitempty"`
	AutonomyProfile        string         `json:"autonomy_profile,omitempty"`
	Profile                PersonaProfile `json:"profile"`
	Error                  string         `json:"error,omitempty"`
	RawText                string         `json:"raw_text,omitempty"`
}

// Failed reports whether the card is an error marker.
func (c PersonaCard) Failed() bool {
	return c.Error != ""
}
