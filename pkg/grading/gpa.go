package grading

import (
	"math"

	"github.com/shopspring/decimal"
)

// Entry is one graded course as it contributes to an average.
type Entry struct {
	GradePoint  float64
	CreditUnits int
}

// GPA is the credit weighted mean of grade points rounded to two decimals.
// No credits yields 0.
func GPA(entries []Entry) float64 {
	var weighted float64
	var credits int
	for _, e := range entries {
		weighted += e.GradePoint * float64(e.CreditUnits)
		credits += e.CreditUnits
	}
	if credits == 0 {
		return 0
	}
	return Round2(weighted / float64(credits))
}

// CGPA weights every entry of every term by its credits. It is not the mean
// of the per-term GPAs.
func CGPA(terms [][]Entry) float64 {
	n := 0
	for _, term := range terms {
		n += len(term)
	}
	flat := make([]Entry, 0, n)
	for _, term := range terms {
		flat = append(flat, term...)
	}
	return GPA(flat)
}

// Round2 rounds half to even at two decimals.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// RoundMark rounds a raw mark to the two decimals it is stored with, half away
// from zero on its shortest decimal form. 39.995 becomes 40, matching what a
// NUMERIC(5,2) column keeps for the same input.
func RoundMark(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Standing returns the GPA of the last term and the CGPA over all terms.
// Terms are expected in chronological order.
func Standing(terms [][]Entry) (gpa, cgpa float64) {
	for i := len(terms) - 1; i >= 0; i-- {
		if len(terms[i]) > 0 {
			gpa = GPA(terms[i])
			break
		}
	}
	return gpa, CGPA(terms)
}
