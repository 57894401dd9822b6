package components

import (
	"fmt"
	"strings"
	"testing"
)

func TestSparkline(t *testing.T) {
	data := []float64{0, 25, 50, 75, 100, 50, 25, 0}
	result := []rune(Sparkline(data, 8, 0))
	if len(result) != 8 {
		t.Fatalf("expected 8 chars, got %d", len(result))
	}
	if result[4] != blocks[len(blocks)-1] {
		t.Errorf("maximum should render full block, got %q", result[4])
	}
	if result[0] != blocks[0] {
		t.Errorf("zero should render lowest block, got %q", result[0])
	}
}

func TestSparklineEmpty(t *testing.T) {
	result := Sparkline(nil, 8, 0)
	if result != "        " {
		t.Errorf("expected 8 spaces for empty data, got %q", result)
	}
}

func TestSparklineCeiling(t *testing.T) {
	result := []rune(Sparkline([]float64{50, 200}, 4, 100))
	if len(result) != 4 {
		t.Fatalf("expected 4 chars, got %d", len(result))
	}
	if result[0] != ' ' || result[1] != ' ' {
		t.Errorf("short data should be right-aligned: %q", string(result))
	}
	if result[3] != blocks[len(blocks)-1] {
		t.Errorf("value above ceiling should clamp to full block, got %q", result[3])
	}
}

func TestRenderChart(t *testing.T) {
	label := func(v float64) string { return fmt.Sprintf("%.0f", v) }
	out := RenderChart([]float64{1, 2, 3, 4}, 30, 6, "In", label)
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "In") {
		t.Errorf("title row = %q", lines[0])
	}
	if !strings.ContainsRune(lines[1], '█') {
		t.Error("expected the maximum to reach the top row")
	}
	if !strings.Contains(lines[1], "4") {
		t.Errorf("top axis label should show the maximum: %q", lines[1])
	}
}

func TestRenderChartEmpty(t *testing.T) {
	out := RenderChart(nil, 30, 5, "Out", func(float64) string { return "" })
	if n := len(strings.Split(out, "\n")); n != 5 {
		t.Errorf("expected 5 lines, got %d", n)
	}
	if strings.ContainsRune(out, '█') {
		t.Error("empty chart should have no bars")
	}
}
