// Package stats contains typing metrics, history summaries and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/verte-zerg/typerace/internal/model"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// MovingAverage returns the trailing mean of values over window points. The
// first window-1 points average over what is available so far.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	window = max(window, 1)
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if n > window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline draws values as one row of block glyphs scaled between their
// minimum and maximum. A flat series sits at mid height.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := minMax(values)
	top := len(sparkLevels) - 1
	out := make([]rune, len(values))
	for i, v := range values {
		level := top / 2
		if span := hi - lo; span > 1e-9 {
			level = int(math.Round((v - lo) / span * float64(top)))
		}
		out[i] = sparkLevels[min(max(level, 0), top)]
	}
	return string(out)
}

// Summarize groups results by mode.
func Summarize(results []model.Result) []model.ResultAggregate {
	byMode := map[model.Mode]*model.ResultAggregate{}
	for _, r := range results {
		agg, ok := byMode[r.Mode]
		if !ok {
			agg = &model.ResultAggregate{Mode: r.Mode}
			byMode[r.Mode] = agg
		}
		agg.Count++
		agg.AvgWPM += r.WPM
		agg.AvgAccuracy += r.Accuracy
		if r.WPM > agg.BestWPM {
			agg.BestWPM = r.WPM
		}
		if r.IsWin != nil && *r.IsWin {
			agg.Wins++
		}
	}
	out := make([]model.ResultAggregate, 0, len(byMode))
	for _, agg := range byMode {
		agg.AvgWPM /= float64(agg.Count)
		agg.AvgAccuracy /= float64(agg.Count)
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mode < out[j].Mode })
	return out
}

// RenderSummary prints a summary table for results.
func RenderSummary(w io.Writer, results []model.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	if _, err := io.WriteString(w, "Summary\n"); err != nil {
		return err
	}
	headers := []string{"Mode", "Runs", "Avg WPM", "Best WPM", "Avg Accuracy", "Wins"}
	aggs := Summarize(results)
	rows := make([][]string, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, []string{
			string(agg.Mode),
			fmt.Sprintf("%d", agg.Count),
			fmt.Sprintf("%.1f", agg.AvgWPM),
			fmt.Sprintf("%.1f", agg.BestWPM),
			fmt.Sprintf("%.2f%%", agg.AvgAccuracy),
			fmt.Sprintf("%d", agg.Wins),
		})
	}
	for _, line := range formatTable(headers, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves prints WPM and accuracy history as moving averages.
func RenderCurves(w io.Writer, results []model.Result, window, totalWidth, height int) error {
	if len(results) == 0 {
		return nil
	}
	wpms := make([]float64, len(results))
	accs := make([]float64, len(results))
	for i, r := range results {
		wpms[i] = r.WPM
		accs[i] = r.Accuracy
	}
	if err := RenderHistory(w, "WPM", MovingAverage(wpms, window), totalWidth, height); err != nil {
		return err
	}
	return RenderHistory(w, "Accuracy", MovingAverage(accs, window), totalWidth, height)
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
