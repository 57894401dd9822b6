package components

import (
	"fmt"
	"strings"
)

// eighths are the partial-cell glyphs, index n filling n/8 of a cell.
var eighths = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const labelWidth = 12

// RenderChart draws rate history as a bar chart with a zero baseline. The
// first line is the centred title; the remaining height-1 rows are the plot
// with label rendering the axis value at the top of each row.
func RenderChart(data []float64, width, height int, title string, label func(float64) string) string {
	width = max(width, labelWidth+2)
	rows := max(height, 4) - 1
	cols := width - labelWidth

	if len(data) > cols {
		data = data[len(data)-cols:]
	}
	ceiling := 0.0
	for _, v := range data {
		ceiling = max(ceiling, v)
	}
	if ceiling == 0 {
		ceiling = 1
	}

	// Column heights in eighths of a cell.
	levels := make([]int, cols)
	offset := cols - len(data)
	for i, v := range data {
		if v > 0 {
			levels[offset+i] = int(v/ceiling*float64(rows*8) + 0.5)
		}
	}

	out := make([]string, 0, rows+1)
	out = append(out, centerText(title, width))
	for row := rows - 1; row >= 0; row-- {
		var axis string
		if len(data) > 0 {
			axis = fmt.Sprintf("%*s ", labelWidth-1, label(ceiling*float64(row+1)/float64(rows)))
			if len(axis) > labelWidth {
				axis = axis[len(axis)-labelWidth:]
			}
		} else {
			axis = strings.Repeat(" ", labelWidth)
		}
		var sb strings.Builder
		sb.WriteString(axis)
		for _, lvl := range levels {
			fill := min(max(lvl-row*8, 0), 8)
			sb.WriteRune(eighths[fill])
		}
		out = append(out, sb.String())
	}
	return strings.Join(out, "\n")
}

func centerText(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(s)-pad)
}
