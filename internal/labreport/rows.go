package labreport

import (
	"math"
	"sort"
)

// DefaultRowThreshold is the vertical distance within which fragments
// are considered to share a row
const DefaultRowThreshold = 15.0

// GroupRows clusters fragments into rows, top to bottom.
//
// A fragment joins the current row when its y is within threshold of the
// row's anchor, which is the y of the row's first member rather than a
// running average. Each closed row is ordered by x.
func GroupRows(fragments []Fragment, threshold float64) []Row {
	rows := []Row{}
	if len(fragments) == 0 {
		return rows
	}

	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position.Y < sorted[j].Position.Y
	})

	current := Row{sorted[0]}
	anchor := sorted[0].Position.Y

	for _, f := range sorted[1:] {
		if math.Abs(f.Position.Y-anchor) <= threshold {
			current = append(current, f)
			continue
		}
		rows = append(rows, sortRow(current))
		current = Row{f}
		anchor = f.Position.Y
	}

	return append(rows, sortRow(current))
}

func sortRow(row Row) Row {
	sort.SliceStable(row, func(i, j int) bool {
		return row[i].Position.X < row[j].Position.X
	})
	return row
}
