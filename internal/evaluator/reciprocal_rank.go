package evaluator

// ReciprocalRank is 1/r for the 1-based rank r of the first relevant
// instance, or 0 when nothing is relevant.
type ReciprocalRank struct{}

var _ Evaluator = ReciprocalRank{}

func (ReciprocalRank) Name() string { return "RR" }

func (ReciprocalRank) Score(_ string, ranked []RankedInstance) float64 {
	for i, ri := range ranked {
		if ri.IsRelevant() {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}
