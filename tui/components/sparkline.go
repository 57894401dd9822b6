package components

import "strings"

var blocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the newest width rates as block characters, scaled from
// zero to ceiling so an idle link stays flat. A ceiling of zero or less
// scales to the largest value shown.
func Sparkline(data []float64, width int, ceiling float64) string {
	if width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}
	if ceiling <= 0 {
		for _, v := range data {
			ceiling = max(ceiling, v)
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", width-len(data)))
	top := len(blocks) - 1
	for _, v := range data {
		if ceiling <= 0 || v <= 0 {
			sb.WriteRune(blocks[0])
			continue
		}
		idx := int(v / ceiling * float64(top))
		sb.WriteRune(blocks[min(max(idx, 0), top)])
	}
	return sb.String()
}
