package sentiment

// QualifiedThreshold is the score at which a prospect is treated as qualified.
const QualifiedThreshold = 0.7

var intentWeights = map[Intent]float64{
	IntentPurchase:    1.0,
	IntentDemo:        0.9,
	IntentPricing:     0.8,
	IntentInformation: 0.6,
	IntentSupport:     0.5,
	IntentGeneral:     0.4,
}

var urgencyWeights = map[Urgency]float64{
	UrgencyHigh:   1.0,
	UrgencyMedium: 0.6,
	UrgencyLow:    0.3,
}

const unknownWeight = 0.5

// Score combines analyses into one interest score in [0,1].
// Intent dominates: 0.3*mean(score) + 0.5*mean(intent weight) + 0.2*mean(urgency weight).
func Score(history []Analysis) float64 {
	if len(history) == 0 {
		return 0.5
	}

	var sumScore, sumIntent, sumUrgency float64
	for _, a := range history {
		sumScore += a.Score
		sumIntent += weightOr(intentWeights[a.Intent], a.Intent.Valid())
		sumUrgency += weightOr(urgencyWeights[a.Urgency], a.Urgency.Valid())
	}
	n := float64(len(history))
	return clamp01(0.3*(sumScore/n) + 0.5*(sumIntent/n) + 0.2*(sumUrgency/n))
}

func IsQualified(score float64) bool { return score >= QualifiedThreshold }

func weightOr(w float64, known bool) float64 {
	if !known {
		return unknownWeight
	}
	return w
}
