package stats

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// formatTable lays rows out under headers with one space between columns.
// Numeric columns (values like "12", "97.50%" or "-") are right-aligned.
func formatTable(headers []string, rows [][]string) []string {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	numeric := make([]bool, colCount)
	for i := range numeric {
		numeric[i] = len(rows) > 0
	}
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := cellAt(row, i)
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
			if !isNumericCell(cell) {
				numeric[i] = false
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, numeric))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, numeric))
	}
	return lines
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isNumericCell(cell string) bool {
	cell = strings.TrimSuffix(strings.TrimSpace(cell), "%")
	if cell == "" || cell == "-" {
		return true
	}
	_, err := strconv.ParseFloat(cell, 64)
	return err == nil
}

func formatRow(row []string, widths []int, rightAlign []bool) string {
	cells := make([]string, len(widths))
	for i := range widths {
		cell := cellAt(row, i)
		if rightAlign[i] {
			cells[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
	}
	return strings.TrimRight(strings.Join(cells, " "), " ")
}
