package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// DisplayName prettifies an API list slug for human-facing output,
// e.g. "hardcover-fiction" becomes "Hardcover Fiction".
func DisplayName(listName string) string {
	return titleCaser.String(strings.ReplaceAll(listName, "-", " "))
}

// RenderFound renders the found-CatKeys text artifact: one block per
// list plus the combined line. The timestamp is injected so identical
// inputs render byte-identical output.
func RenderFound(lists []ListReport, combined []string, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("NYT Bestsellers - Found CatKeys\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.Format("2006-01-02 15:04:05"))
	for _, list := range lists {
		if len(list.Found) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", DisplayName(list.ListName))
		fmt.Fprintf(&b, "CatKeys: %s\n", strings.Join(list.Found, ","))
		fmt.Fprintf(&b, "Count: %d\n\n", len(list.Found))
	}
	fmt.Fprintf(&b, "All CatKeys Combined:\n%s\n", strings.Join(combined, ","))
	return b.String()
}

// RenderFoundLines renders the compact per-list form used on the
// console: one "<list>: <k1>,<k2>,..." line per list with matches.
func RenderFoundLines(lists []ListReport) string {
	var lines []string
	for _, list := range lists {
		if len(list.Found) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", DisplayName(list.ListName), strings.Join(list.Found, ",")))
	}
	return strings.Join(lines, "\n")
}

// WriteNotFoundCSV writes the not-found rows for all lists as CSV with a
// list_name,isbn,title,author header, preserving accumulation order.
func WriteNotFoundCSV(w io.Writer, lists []ListReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"list_name", "isbn", "title", "author"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, list := range lists {
		for _, row := range list.NotFound {
			record := []string{list.ListName, row.ISBN, row.Title, row.Author}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Summary renders the plain-text run summary used as the email body.
func Summary(lists []ListReport, combined []string, generatedAt time.Time) string {
	totalFound := 0
	totalNotFound := 0
	for _, list := range lists {
		totalFound += len(list.Found)
		totalNotFound += len(list.NotFound)
	}

	var b strings.Builder
	b.WriteString("NYT Bestsellers CatKey Processing Complete\n")
	b.WriteString(strings.Repeat("=", 45) + "\n\n")
	fmt.Fprintf(&b, "Processing completed: %s\n\n", generatedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("SUMMARY:\n")
	fmt.Fprintf(&b, "Total found: %d\n", totalFound)
	fmt.Fprintf(&b, "Total not found: %d\n", totalNotFound)
	fmt.Fprintf(&b, "Unique CatKeys across lists: %d\n\n", len(combined))
	b.WriteString("PER-LIST BREAKDOWN:\n")
	for _, list := range lists {
		fmt.Fprintf(&b, "- %s: %d found, %d not found\n",
			DisplayName(list.ListName), len(list.Found), len(list.NotFound))
	}
	b.WriteString("\nGenerated by catkeygen\n")
	return b.String()
}
