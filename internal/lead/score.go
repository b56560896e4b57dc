package lead

// Field weights for the completeness score.
const (
	weightName  = 3
	weightEmail = 2
	weightPhone = 2
	weightOther = 1

	// MaxScore is the normalizing denominator. A lead with every field
	// populated exceeds it and clamps to 1.
	MaxScore = 13
)

// Score returns the completeness of l in [0,1].
func Score(l Lead) float64 {
	raw := 0
	if l.Name != "" {
		raw += weightName
	}
	if l.Email != "" {
		raw += weightEmail
	}
	if l.Phone != "" {
		raw += weightPhone
	}
	for _, v := range []string{l.Company, l.Title, l.Address, l.Industry, l.Website, l.AdditionalInfo} {
		if v != "" {
			raw += weightOther
		}
	}
	if len(l.SocialMedia) > 0 {
		raw += weightOther
	}

	c := float64(raw) / MaxScore
	if c > 1 {
		return 1
	}
	return c
}

// ScoreAll attaches a confidence to each lead, preserving order.
func ScoreAll(leads []Lead) []ScoredLead {
	out := make([]ScoredLead, len(leads))
	for i, l := range leads {
		out[i] = ScoredLead{Lead: l, Confidence: Score(l)}
	}
	return out
}
