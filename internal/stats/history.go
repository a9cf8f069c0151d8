package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	defaultChartHeight  = 8
	minChartWidth       = 10
	chartAxisWidth      = 8
	terminalWidthBackup = 80
)

var barLevels = []rune(" ▁▂▃▄▅▆▇█")

// RenderHistory draws values as a column chart. A totalWidth of 0 sizes the
// chart to the terminal.
func RenderHistory(w io.Writer, title string, values []float64, totalWidth, height int) error {
	if len(values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultChartHeight
	}
	if totalWidth <= 0 {
		totalWidth = terminalWidth()
	}
	width := ChartWidthFor(totalWidth)
	cols := resample(values, width)
	lo, hi := minMax(cols)
	if math.Abs(hi-lo) < 1e-9 {
		lo = math.Max(0, lo-1)
		hi++
	}

	if _, err := fmt.Fprintf(w, "%s (min %.1f, max %.1f)\n", title, lo, hi); err != nil {
		return err
	}
	steps := len(barLevels) - 1
	for row := height - 1; row >= 0; row-- {
		var b strings.Builder
		switch row {
		case height - 1:
			b.WriteString(fmt.Sprintf("%6.0f │", hi))
		case 0:
			b.WriteString(fmt.Sprintf("%6.0f │", lo))
		default:
			b.WriteString("       │")
		}
		for _, v := range cols {
			filled := (v - lo) / (hi - lo) * float64(height*steps)
			cell := int(math.Round(filled)) - row*steps
			if cell < 0 {
				cell = 0
			}
			if cell > steps {
				cell = steps
			}
			b.WriteRune(barLevels[cell])
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// ChartWidthFor computes the number of data columns that fit in totalWidth.
func ChartWidthFor(totalWidth int) int {
	width := totalWidth - chartAxisWidth
	if width < minChartWidth {
		width = minChartWidth
	}
	return width
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// resample averages values into at most width buckets. Short series are left
// as-is rather than stretched.
func resample(values []float64, width int) []float64 {
	if len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}
