package timing

import (
	"math"
)

// Delay and capacitance comparisons never rely on exact float equality.

var Inf = math.Inf(1)

const (
	relTol = 1e-9
	absTol = 1e-20
)

func FuzzyEqual(a, b float64) bool {
	if a == b {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	diff := math.Abs(a - b)
	if diff < absTol {
		return true
	}
	return diff < relTol*math.Max(math.Abs(a), math.Abs(b))
}

func FuzzyLess(a, b float64) bool {
	return a < b && !FuzzyEqual(a, b)
}

func FuzzyLessEqual(a, b float64) bool {
	return a < b || FuzzyEqual(a, b)
}

func FuzzyGreater(a, b float64) bool {
	return a > b && !FuzzyEqual(a, b)
}

func FuzzyGreaterEqual(a, b float64) bool {
	return a > b || FuzzyEqual(a, b)
}

func FuzzyInf(a float64) bool {
	return math.IsInf(a, 0)
}
