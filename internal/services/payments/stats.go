package payments

import "math"

// daysPerYear uses the Julian year so that one payment every ~365 days
// comes out as frequency 1.
const daysPerYear = 365.25

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// sampleStdDev is the n-1 standard deviation.
func sampleStdDev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)-1))
}
