package labreport

// frag builds a fragment centred on (x, y) with a 40x10 box
func frag(text string, x, y float64) Fragment {
	return NewFragment(text, 0.9, [4]Point{
		{X: x - 20, Y: y - 5},
		{X: x + 20, Y: y - 5},
		{X: x + 20, Y: y + 5},
		{X: x - 20, Y: y + 5},
	})
}

// rowTexts flattens rows into their fragment texts for easy comparison
func rowTexts(rows []Row) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		for _, f := range row {
			out[i] = append(out[i], f.Text)
		}
	}
	return out
}
