// Package coverage converts extractor output (level, confidence) into the
// coverage tier and normalized weight stored on program skill rows.
package coverage

type Tier string

const (
	TierPrimary      Tier = "primary"
	TierSecondary    Tier = "secondary"
	TierSupplemental Tier = "supplemental"
)

// maxLevel is the top of the extractor's 1-12 proficiency scale.
const maxLevel = 12.0

var baseWeight = map[Tier]float64{
	TierPrimary:      1.0,
	TierSecondary:    0.7,
	TierSupplemental: 0.3,
}

type Classification struct {
	Tier   Tier
	Weight float64
}

// Classify is deterministic: the same (level, confidence) pair always yields
// the same tier and weight, and the weight stays within [0, 1].
func Classify(level int, confidence float64) Classification {
	if level <= 0 {
		level = 1
	}
	if confidence <= 0 {
		confidence = 0.5
	}

	tier := TierSupplemental
	switch {
	case level >= 8 && confidence >= 0.8:
		tier = TierPrimary
	case level >= 5 && confidence >= 0.6:
		tier = TierSecondary
	}

	w := baseWeight[tier] * (float64(level) / maxLevel) * confidence
	if w > 1 {
		w = 1
	}
	if w < 0 {
		w = 0
	}

	return Classification{Tier: tier, Weight: w}
}
