package exporter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"incomestatement/pkg/contracts/domain"
)

// WriteTable prints the statement as aligned columns. Highlighted rows are
// marked with a trailing asterisk.
func WriteTable(w io.Writer, result *domain.ResultSet) error {
	view := NewView(result)

	fmt.Fprintln(w, view.Title)
	fmt.Fprintln(w, strings.Repeat("=", len(view.Title)))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, h := range view.Headlines {
		fmt.Fprintf(tw, "%s\t%s\t\n", h.Label, h.Display)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Metric\tValue\t\n")
	for _, line := range view.Lines {
		mark := ""
		if line.Highlight != domain.HighlightNone {
			mark = " *"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t\n", line.Label, mark, line.Display)
	}
	return tw.Flush()
}
