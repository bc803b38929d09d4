// Package notifier delivers the change batch produced by a cycle to
// operators, over email and Telegram.
package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/Houeta/bookwatch/internal/models"
)

// maxListedChanges bounds message bodies; the full batch always lands in
// the cycle report files.
const maxListedChanges = 25

func recordTitle(rec *models.ChangeRecord) string {
	if rec.NewSnapshot != nil && rec.NewSnapshot.Name != nil {
		return *rec.NewSnapshot.Name
	}
	return rec.SourceURL
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}

// sortedFieldNames keeps change details in a stable order across deliveries.
func sortedFieldNames(fields map[string]models.FieldChange) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renderText builds the plain-text summary used for Telegram messages.
func renderText(changes []models.ChangeRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "bookwatch: %d change(s) detected\n", len(changes))

	for i, rec := range changes {
		if i == maxListedChanges {
			fmt.Fprintf(&sb, "... and %d more\n", len(changes)-maxListedChanges)
			break
		}

		fmt.Fprintf(&sb, "\n[%s] %s\n%s\n", rec.Kind, recordTitle(&rec), rec.SourceURL)

		if rec.Kind == models.ChangeUpdate {
			for _, field := range sortedFieldNames(rec.ChangedFields) {
				change := rec.ChangedFields[field]
				fmt.Fprintf(&sb, "  %s: %s -> %s\n", field, formatValue(change.Old), formatValue(change.New))
			}
		}

		for _, alert := range rec.Alerts {
			fmt.Fprintf(&sb, "  ALERT (%s): %s\n", alert.Kind, alert.Message)
		}
	}

	return sb.String()
}

// renderHTML builds the email body: one table row per change record.
func renderHTML(changes []models.ChangeRecord) string {
	var sb strings.Builder

	sb.WriteString(`<html><body><h2>Book changes detected</h2>`)
	sb.WriteString(`<table border="1" style="border-collapse: collapse; width: 100%;">`)
	sb.WriteString(`<tr><th>Book</th><th>Change</th><th>Details</th><th>Alerts</th></tr>`)

	for _, rec := range changes {
		sb.WriteString("<tr>")
		fmt.Fprintf(&sb, `<td><a href="%s">%s</a></td>`,
			html.EscapeString(rec.SourceURL), html.EscapeString(recordTitle(&rec)))
		fmt.Fprintf(&sb, "<td>%s</td>", rec.Kind)

		sb.WriteString("<td><ul>")
		for _, field := range sortedFieldNames(rec.ChangedFields) {
			change := rec.ChangedFields[field]
			fmt.Fprintf(&sb, "<li>%s: %s &rarr; %s</li>",
				html.EscapeString(field),
				html.EscapeString(formatValue(change.Old)),
				html.EscapeString(formatValue(change.New)))
		}
		sb.WriteString("</ul></td>")

		sb.WriteString("<td><ul>")
		for _, alert := range rec.Alerts {
			fmt.Fprintf(&sb, "<li>%s: %s</li>",
				html.EscapeString(string(alert.Kind)), html.EscapeString(alert.Message))
		}
		sb.WriteString("</ul></td>")
		sb.WriteString("</tr>")
	}

	sb.WriteString("</table></body></html>")

	return sb.String()
}
