package core

import (
	"math"

	"metrocore/pkg/domain"
)

// DefaultValidationWindow is the rolling number of historical readings the
// statistical validator considers per (sample point, parameter) pair.
const DefaultValidationWindow = 15

// Band is the 2-sigma acceptance interval derived from a historical series.
type Band struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ComputeBand derives mean, sample standard deviation and the mean±2σ band
// from a historical series. Series of length one or less, and series whose
// usable values collapse after dropping malformed entries, degrade to a zero
// std band centred on the mean rather than failing.
func ComputeBand(history []float64) Band {
	values := history[:0:0]
	for _, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return Band{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var std float64
	if len(values) > 1 {
		var ss float64
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(len(values)-1))
	}

	return Band{
		Mean:  mean,
		Std:   std,
		Lower: mean - 2*std,
		Upper: mean + 2*std,
	}
}

// Classify tests a reading against the band. Bounds are inclusive; a collapsed
// band (std zero) accepts only the exact mean. Malformed values never pass.
func Classify(value float64, band Band) domain.Verdict {
	if value >= band.Lower && value <= band.Upper {
		return domain.VerdictPass
	}
	return domain.VerdictFail
}

// OverallVerdict aggregates per-parameter verdicts: any failure fails the
// whole report.
func OverallVerdict(results []domain.LabResult) domain.Verdict {
	for _, r := range results {
		if r.Verdict == domain.VerdictFail {
			return domain.VerdictFail
		}
	}
	return domain.VerdictPass
}

// ParameterReading is one structured value extracted from an uploaded report
// by the external parser.
type ParameterReading struct {
	Parameter domain.Parameter `json:"parameter"`
	Value     float64          `json:"value"`
	Unit      string           `json:"unit"`
}
