package rag

import (
	"github.com/hajime-dev/devicekb/internal/model"
)

const (
	excellentAvgConfidence = 0.80
	excellentMinEvidence   = 3
	goodAvgConfidence      = 0.65
	goodMinEvidence        = 2
)

func computeQualityMetrics(evidence []model.RetrievalResult) model.QualityMetrics {
	m := model.QualityMetrics{EvidenceCount: len(evidence), Label: model.QualityPoor}
	if len(evidence) == 0 {
		return m
	}
	var sum float64
	for _, ev := range evidence {
		sum += ev.CompositeScore
		switch ev.Tier {
		case model.TierCritical:
			m.CriticalCount++
		case model.TierHigh:
			m.HighCount++
		case model.TierAcceptable:
			m.AcceptableCount++
		}
	}
	m.AverageConfidence = sum / float64(len(evidence))
	switch {
	case m.AverageConfidence >= excellentAvgConfidence && m.EvidenceCount >= excellentMinEvidence:
		m.Label = model.QualityExcellent
	case m.AverageConfidence >= goodAvgConfidence && m.EvidenceCount >= goodMinEvidence:
		m.Label = model.QualityGood
	}
	return m
}
