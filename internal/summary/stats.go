package summary

import (
	"math"
	"slices"

	"github.com/scoreunlock/scoreunlock/internal/model"
)

// singlePrecision rounds half up to one decimal place.
func singlePrecision(x float64) float64 {
	return math.Floor(10*x+0.5) / 10
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	s := slices.Clone(xs)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// stdev is the population standard deviation.
func stdev(xs []float64) float64 {
	m := mean(xs)
	var sumsq float64
	for _, x := range xs {
		d := x - m
		sumsq += d * d
	}
	return math.Sqrt(sumsq / float64(len(xs)))
}

// percent converts a score to a percentage of outOf, capped at 100.
// A non-positive outOf yields 100 for positive scores and 0 otherwise.
func percent(score, outOf float64) float64 {
	if outOf <= 0 {
		if score > 0 {
			return 100
		}
		return 0
	}
	return math.Min(100, score/outOf*100)
}

// Statistics computes mean, median and standard deviation of results, in
// points and as a percentage of outOf. It returns nil for an empty sample.
func Statistics(results []float64, outOf float64) *model.Stats {
	if len(results) == 0 {
		return nil
	}
	pct := make([]float64, len(results))
	for i, r := range results {
		pct[i] = percent(r, outOf)
	}
	return &model.Stats{
		MeanPercent:   singlePrecision(mean(pct)),
		MedianPercent: singlePrecision(median(pct)),
		StdevPercent:  singlePrecision(stdev(pct)),
		MeanPoints:    singlePrecision(mean(results)),
		MedianPoints:  singlePrecision(median(results)),
		StdevPoints:   singlePrecision(stdev(results)),
	}
}
