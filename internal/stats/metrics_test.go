package stats

import (
	"testing"
	"time"
)

func TestNetWPM(t *testing.T) {
	if got := NetWPM(50, 30*time.Second); got != 20 {
		t.Fatalf("expected 20 WPM, got %.2f", got)
	}
	if got := NetWPM(7, 10*time.Second); got != 8 {
		t.Fatalf("expected rounded 8 WPM, got %.2f", got)
	}
	if got := NetWPM(10, 0); got != 0 {
		t.Fatalf("expected 0 WPM without elapsed time, got %.2f", got)
	}
	if got := NetWPM(-3, time.Minute); got != 0 {
		t.Fatalf("expected WPM floored at 0, got %.2f", got)
	}
}

func TestRawWPMCountsEverything(t *testing.T) {
	if got := RawWPM(100, time.Minute); got != 20 {
		t.Fatalf("expected 20 raw WPM, got %.2f", got)
	}
}

func TestAccuracyBounds(t *testing.T) {
	cases := []struct {
		correct, total int
		want           float64
	}{
		{0, 0, 100},
		{5, 10, 50},
		{10, 10, 100},
		{12, 10, 100},
		{0, 4, 0},
	}
	for _, tc := range cases {
		if got := Accuracy(tc.correct, tc.total); got != tc.want {
			t.Fatalf("Accuracy(%d, %d) = %.2f, want %.2f", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestConsistency(t *testing.T) {
	if got := Consistency(nil); got != 100 {
		t.Fatalf("expected 100 for no samples, got %.2f", got)
	}
	if got := Consistency([]float64{60}); got != 100 {
		t.Fatalf("expected 100 for one sample, got %.2f", got)
	}
	if got := Consistency([]float64{50, 50, 50}); got != 100 {
		t.Fatalf("expected 100 for flat samples, got %.2f", got)
	}
	// mean 50, population stddev 10 -> 80.
	if got := Consistency([]float64{40, 60}); got != 80 {
		t.Fatalf("expected 80, got %.2f", got)
	}
	if got := Consistency([]float64{0, 0, 300}); got != 0 {
		t.Fatalf("expected clamp to 0, got %.2f", got)
	}
}

func TestWordsTyped(t *testing.T) {
	if got := WordsTyped(23); got != 5 {
		t.Fatalf("expected 5 words, got %d", got)
	}
	if got := WordsTyped(0); got != 0 {
		t.Fatalf("expected 0 words, got %d", got)
	}
}
