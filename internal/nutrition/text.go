package nutrition

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteText prints sections as a plain-text report.
func WriteText(w io.Writer, v Variant, sections []Section) error {
	bw := bufio.NewWriter(w)

	heading := "RAW FOOD ANALYSIS"
	if v == PackagedProduct {
		heading = "PACKAGED FOOD ANALYSIS"
	}
	fmt.Fprintln(bw, heading)
	fmt.Fprintln(bw, strings.Repeat("=", 50))

	if len(sections) == 0 {
		fmt.Fprintln(bw, "No analysis data available")
	}

	for _, s := range sections {
		title := s.Title
		if s.Warning {
			title = "! " + title
		}
		fmt.Fprintf(bw, "\n%s\n%s\n", title, strings.Repeat("-", 30))
		for _, f := range s.Fields {
			if f.Note != "" {
				fmt.Fprintf(bw, "%s: %s (%s)\n", f.Label, f.Value, f.Note)
			} else {
				fmt.Fprintf(bw, "%s: %s\n", f.Label, f.Value)
			}
		}
		for _, item := range s.Items {
			fmt.Fprintf(bw, "• %s\n", item)
		}
	}

	return bw.Flush()
}
