package stats

import (
	"math"
	"time"
)

// charsPerWord is the standard word length used by WPM calculations.
const charsPerWord = 5.0

// NetWPM counts only correct characters: (correct / 5) / minutes, floored at
// 0 and rounded to the nearest whole word.
func NetWPM(correct int, elapsed time.Duration) float64 {
	return wordsPerMinute(correct, elapsed)
}

// RawWPM counts every committed character: (total / 5) / minutes.
func RawWPM(total int, elapsed time.Duration) float64 {
	return wordsPerMinute(total, elapsed)
}

func wordsPerMinute(chars int, elapsed time.Duration) float64 {
	minutes := elapsed.Minutes()
	if minutes <= 0 || chars <= 0 {
		return 0
	}
	return math.Max(0, math.Round((float64(chars)/charsPerWord)/minutes))
}

// Accuracy is correct / total as a percentage. An untouched run is 100%.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 100
	}
	return clamp(float64(correct)/float64(total)*100, 0, 100)
}

// Consistency is 100 minus the coefficient of variation of the WPM samples,
// clamped to [0, 100]. Fewer than two samples, or a flat series, is 100.
func Consistency(samples []float64) float64 {
	if len(samples) < 2 {
		return 100
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))
	var sq float64
	for _, v := range samples {
		d := v - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(samples)))
	if stddev == 0 {
		return 100
	}
	if mean <= 0 {
		return 0
	}
	return clamp(100-stddev/mean*100, 0, 100)
}

// WordsTyped converts correct characters to whole standard words.
func WordsTyped(correct int) int {
	if correct <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / charsPerWord))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
