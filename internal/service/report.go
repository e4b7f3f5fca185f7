package service

import (
	"io"

	"github.com/fatih/color"
	"github.com/gioco-play/easy-i18n/i18n"

	"nunu-cli/internal/pkg/format"
)

// Rows turns results into lines of the summary table
func Rows(results []Result) []format.Row {
	rows := make([]format.Row, 0, len(results))
	for _, r := range results {
		row := format.Row{File: r.File, OK: r.Err == nil}
		if r.Err != nil {
			row.Detail = r.Err.Error()
		} else {
			row.Detail = i18n.Sprintf("Build ID: %s", r.BuildID)
		}
		rows = append(rows, row)
	}
	return rows
}

// Report prints the end of run summary
func Report(w io.Writer, results []Result) {
	var ok, failed int
	for _, r := range results {
		if r.Err == nil {
			ok++
		} else {
			failed++
		}
	}

	i18n.Fprintf(w, "\n")
	if ok > 0 {
		i18n.Fprintf(w, "%s", color.GreenString("%s\n", i18n.Sprintf("Successfully uploaded %d file(s)", ok)))
	}
	if failed > 0 {
		i18n.Fprintf(w, "%s", color.RedString("%s\n", i18n.Sprintf("Failed to upload %d file(s)", failed)))
	}
	format.Output(w, Rows(results))
}
