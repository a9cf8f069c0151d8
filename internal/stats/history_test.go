package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHistory(&buf, "WPM", []float64{40, 55, 61, 58, 70}, 40, 4); err != nil {
		t.Fatalf("RenderHistory failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "WPM (min 40.0, max 70.0)") {
		t.Fatalf("unexpected title line: %q", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 1+4 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "█") {
		t.Fatalf("expected the max column to reach the top row: %q", lines[1])
	}
}

func TestRenderHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHistory(&buf, "WPM", nil, 40, 4); err != nil {
		t.Fatalf("RenderHistory failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty series")
	}
}

func TestChartWidthFor(t *testing.T) {
	if got := ChartWidthFor(80); got != 80-chartAxisWidth {
		t.Fatalf("expected %d, got %d", 80-chartAxisWidth, got)
	}
	if got := ChartWidthFor(0); got != minChartWidth {
		t.Fatalf("expected min width %d, got %d", minChartWidth, got)
	}
}

func TestResampleAverages(t *testing.T) {
	out := resample([]float64{1, 3, 5, 7}, 2)
	if len(out) != 2 || out[0] != 2 || out[1] != 6 {
		t.Fatalf("unexpected resample: %v", out)
	}
}
