package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Mode", "Accuracy", "Runs"}
	rows := [][]string{
		{"solo", "97.50%", "12"},
		{"race", "8.00%", "3"},
	}

	lines := formatTable(headers, rows)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Mode Accuracy Runs" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "solo   97.50%   12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "race    8.00%    3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Name", "WPM"}, [][]string{{"日本", "80"}, {"ab", "7"}})
	if lines[1] != "日本  80" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "ab     7" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := formatTable(nil, nil); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
