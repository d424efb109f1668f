package model

// RiskLevel is the coarse band shown next to a predicted probability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Band lower bounds, both inclusive.
const (
	HighRiskThreshold   = 0.7
	MediumRiskThreshold = 0.3
)

// Classify maps a probability of leaving onto a risk band.
func Classify(probability float64) RiskLevel {
	switch {
	case probability >= HighRiskThreshold:
		return RiskHigh
	case probability >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Message is the analyst-facing explanation of the band.
func (r RiskLevel) Message() string {
	switch r {
	case RiskHigh:
		return "High Risk: This employee is very likely to leave."
	case RiskMedium:
		return "Medium Risk: This employee might leave. Monitor closely."
	default:
		return "Low Risk: This employee is likely to stay."
	}
}
