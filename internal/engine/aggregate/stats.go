package aggregate

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hejijunhao/tagcheck/internal/model"
)

// z is the two-sided 95% normal quantile.
var z = distuv.UnitNormal.Quantile(0.975)

// Wilson returns the 95% Wilson score interval for matched/total. It is
// (0, 0) when total is 0.
func Wilson(matched, total int) (lower, upper float64) {
	if total <= 0 {
		return 0, 0
	}
	n := float64(total)
	p := float64(matched) / n
	z2 := z * z
	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	half := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

// summarize describes the accuracy distribution of scored events: those that
// are not noise and have at least one parameter.
func summarize(results []model.EventResult) model.Summary {
	var s model.Summary
	var acc stats.Float64Data
	for _, r := range results {
		switch r.Significance {
		case model.SignificanceNoise:
			s.NoiseEvents++
			continue
		case model.SignificanceLow:
			s.LowEvents++
		case model.SignificanceSignificant:
			s.SignificantEvents++
		}
		if r.TotalParams > 0 {
			acc = append(acc, r.Accuracy)
		}
	}
	s.ScoredEvents = len(acc)
	if len(acc) == 0 {
		return s
	}
	s.MeanAccuracy, _ = stats.Mean(acc)
	s.MedianAccuracy, _ = stats.Median(acc)
	s.StdDevAccuracy, _ = stats.StandardDeviationPopulation(acc)
	p10, err := stats.Percentile(acc, 10)
	if err != nil {
		// Too few samples to interpolate; the minimum is the best estimate.
		p10, _ = stats.Min(acc)
	}
	s.P10Accuracy = p10
	return s
}
