package format

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	tm "github.com/buger/goterm"
	"github.com/fatih/color"
)

// Row is one line of the per-file results table
type Row struct {
	File   string
	Detail string
	OK     bool
}

// Output writes the results table with a status column to w
func Output(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, r := range rows {
		if n := utf8.RuneCountInString(r.File); n > width {
			width = n
		}
	}

	table := tm.NewTable(0, 4, 2, ' ', 0)
	for _, r := range rows {
		tip := color.GreenString("[DONE]")
		if !r.OK {
			tip = color.RedString("[ERROR]")
		}
		fmt.Fprintf(table, "\t%s\t%s\t%s\n", padding(r.File, width), tip, r.Detail)
	}
	fmt.Fprint(w, table.String())
}

// padding adds spaces to ensure consistent column width
func padding(item string, length int) string {
	itemLen := utf8.RuneCountInString(item)
	if itemLen < length {
		item += strings.Repeat(" ", length-itemLen)
	}
	return item
}
