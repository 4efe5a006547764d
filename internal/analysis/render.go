package analysis

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// writeTable renders rows as a pipe table. rows[0] is the header; a dashed
// separator follows it. Widths use display width so tract names with
// accented characters stay aligned.
func writeTable(b *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	colCount := 0
	for _, r := range rows {
		if len(r) > colCount {
			colCount = len(r)
		}
	}
	widths := make([]int, colCount)
	for _, r := range rows {
		for i, c := range r {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	line := func(r []string) {
		b.WriteString("|")
		for j := 0; j < colCount; j++ {
			content := ""
			if j < len(r) {
				content = r[j]
			}
			b.WriteString(" ")
			b.WriteString(content)
			if pad := widths[j] - runewidth.StringWidth(content); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	line(rows[0])
	sep := make([]string, colCount)
	for j := range sep {
		sep[j] = strings.Repeat("-", widths[j])
	}
	line(sep)
	for _, r := range rows[1:] {
		line(r)
	}
}
