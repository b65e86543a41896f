package analyze

// DeriveInsights folds an analysis into the persisted shape: topics of
// patient utterances split by sentiment sign, the full ordered score
// sequence (one entry per utterance), and the relationship list. An empty
// analysis derives empty lists, never nil.
func DeriveInsights(a Analysis) Insights {
	in := Insights{
		PositiveTopics:  []string{},
		NegativeTopics:  []string{},
		SentimentScores: []float64{},
		Relationships:   []Relationship{},
	}
	for _, u := range a.Utterances {
		in.SentimentScores = append(in.SentimentScores, u.SentimentScore)
		if u.Role != RolePatient {
			continue
		}
		switch {
		case u.SentimentScore > 0:
			in.PositiveTopics = append(in.PositiveTopics, u.Topics...)
		case u.SentimentScore < 0:
			in.NegativeTopics = append(in.NegativeTopics, u.Topics...)
		}
	}
	in.Relationships = append(in.Relationships, a.Relationships...)
	return in
}
