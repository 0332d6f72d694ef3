package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/report"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

func writeReport(w io.Writer, rep *report.Report, format string) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return writeText(w, rep)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, rep *report.Report) error {
	s := rep.Summary
	var b strings.Builder

	if rep.RunID != "" {
		fmt.Fprintf(&b, "Run:                %s\n", rep.RunID)
	}
	if !s.WindowStart.IsZero() || !s.WindowEnd.IsZero() {
		fmt.Fprintf(&b, "Window:             %s .. %s\n", s.WindowStart.Format("2006-01-02 15:04:05Z07:00"), s.WindowEnd.Format("2006-01-02 15:04:05Z07:00"))
	}
	fmt.Fprintf(&b, "Phone numbers:      %d\n", s.PhoneNumberCount)
	fmt.Fprintf(&b, "Internal messages:  %d\n", s.TotalInternal)
	fmt.Fprintf(&b, "Provider messages:  %d\n", s.TotalExternal)
	fmt.Fprintf(&b, "Matched:            %d (%s)\n", s.Matched, s.MatchRate)
	fmt.Fprintf(&b, "Unmatched:          %d\n", s.Unmatched)
	fmt.Fprintf(&b, "Average confidence: %s\n", s.AverageConfidencePercentage)
	fmt.Fprintf(&b, "First contact:      %d total, %d matched, %d unmatched (%s unmatched)\n",
		s.FirstContact.Total, s.FirstContact.Matched, s.FirstContact.Unmatched, s.FirstContact.UnmatchedRate)

	for _, fe := range rep.FetchErrors {
		fmt.Fprintf(&b, "Fetch error:        %s: %s\n", fe.PhoneNumber, fe.Error)
	}

	if rep.Details != nil {
		writeGroups(&b, "Unmatched by type", rep.Details.UnmatchedByType)
		writeGroups(&b, "Unmatched by phone number", rep.Details.UnmatchedByPhone)
		writeGroups(&b, "Unmatched by date", rep.Details.UnmatchedByDate)

		if len(rep.Details.Unmatched) > 0 {
			b.WriteString("\nUnmatched messages\n")
			for _, o := range rep.Details.Unmatched {
				fmt.Fprintf(&b, "  %s  %s  %s  best=%.2f  %q\n",
					o.Internal.SentAt.Format("2006-01-02 15:04:05"), o.Internal.PhoneNumber, o.Reason, o.Score, o.Internal.Text)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeGroups(b *strings.Builder, title string, groups map[string]*report.Group) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for _, key := range report.SortedKeys(groups) {
		label := key
		if label == "" {
			label = "(none)"
		}
		fmt.Fprintf(b, "  %-24s %d\n", label, groups[key].Count)
	}
}
