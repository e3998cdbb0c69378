// Package grading maps raw course marks to grade points and aggregates them
// into credit weighted GPA and CGPA figures.
package grading

import (
	"fmt"
	"math"
)

// Band is one row of a grade table. Min is the inclusive lower bound.
type Band struct {
	Min    float64 `json:"min"`
	Point  float64 `json:"point"`
	Letter string  `json:"letter"`
	Remark string  `json:"remark"`
}

// Grade is the result of looking up a mark.
type Grade struct {
	Point  float64 `json:"grade_point"`
	Letter string  `json:"letter"`
	Remark string  `json:"remark"`
}

// Table is an immutable, validated set of bands ordered high to low with a
// floor band that catches everything below the last bound.
type Table struct {
	bands []Band
	floor Grade
}

// DefaultTable is the five point scale used for every course.
var DefaultTable = MustTable([]Band{
	{Min: 90, Point: 5.0, Letter: "A+", Remark: "Outstanding"},
	{Min: 80, Point: 5.0, Letter: "A", Remark: "Excellent"},
	{Min: 75, Point: 4.5, Letter: "B+", Remark: "Very Good"},
	{Min: 70, Point: 4.0, Letter: "B", Remark: "Good"},
	{Min: 65, Point: 3.5, Letter: "C+", Remark: "Fairly Good"},
	{Min: 60, Point: 3.0, Letter: "C", Remark: "Fair"},
	{Min: 55, Point: 2.5, Letter: "D+", Remark: "Pass"},
	{Min: 50, Point: 2.0, Letter: "D", Remark: "Marginal Pass"},
	{Min: 45, Point: 1.5, Letter: "E", Remark: "Fail"},
	{Min: 40, Point: 1.0, Letter: "F", Remark: "Fail"},
}, Grade{Point: 0.0, Letter: "F", Remark: "Fail"})

// NewTable validates bands and returns a table. Bands must be given with
// strictly decreasing bounds inside [0, 100].
func NewTable(bands []Band, floor Grade) (*Table, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("grade table requires at least one band")
	}
	copied := make([]Band, len(bands))
	copy(copied, bands)
	for i, band := range copied {
		if math.IsNaN(band.Min) || band.Min < 0 || band.Min > 100 {
			return nil, fmt.Errorf("band %s: bound %v outside [0, 100]", band.Letter, band.Min)
		}
		if band.Letter == "" {
			return nil, fmt.Errorf("band %d: letter required", i)
		}
		if i > 0 && band.Min >= copied[i-1].Min {
			return nil, fmt.Errorf("band %s: bound %v must be below %v", band.Letter, band.Min, copied[i-1].Min)
		}
	}
	if floor.Letter == "" {
		return nil, fmt.Errorf("floor grade letter required")
	}
	return &Table{bands: copied, floor: floor}, nil
}

// MustTable is NewTable for package level tables.
func MustTable(bands []Band, floor Grade) *Table {
	t, err := NewTable(bands, floor)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the grade for mark. Out of range marks are not rejected:
// anything above the top bound earns the top band and anything below the
// lowest bound, negatives and NaN included, earns the floor.
func (t *Table) Lookup(mark float64) Grade {
	for _, band := range t.bands {
		if mark >= band.Min {
			return Grade{Point: band.Point, Letter: band.Letter, Remark: band.Remark}
		}
	}
	return t.floor
}

// Bands returns a copy of the table rows, floor last with a zero bound.
func (t *Table) Bands() []Band {
	out := make([]Band, 0, len(t.bands)+1)
	out = append(out, t.bands...)
	return append(out, Band{Min: 0, Point: t.floor.Point, Letter: t.floor.Letter, Remark: t.floor.Remark})
}

// Lookup resolves mark against DefaultTable.
func Lookup(mark float64) Grade {
	return DefaultTable.Lookup(mark)
}
