// Package notify formats alert batches for their delivery channels and hands
// them to a Dispatcher. The alert engine only decides what to send; everything
// here is presentation and transport.
package notify

import (
	"fmt"
	"strings"

	"github.com/linelink/linelink-go/internal/models"
)

// FormatSMS renders the compact SMS text for a batch: one line per SMS
// candidate, with a trailing count when the email list is longer.
func FormatSMS(batch *models.AlertBatch) string {
	if batch.Empty() {
		return "No alerts at this time."
	}

	lines := []string{"LineLink Alert:"}
	for _, candidate := range batch.SMS {
		s := candidate.Snapshot
		lines = append(lines, fmt.Sprintf("%s %s: %.0f%% loading",
			severityTag(candidate.Severity), s.BranchName, s.LoadingPct))
	}

	if extra := len(batch.Email) - len(batch.SMS); extra > 0 {
		lines = append(lines, fmt.Sprintf("+ %d more. Check dashboard.", extra))
	}

	return strings.Join(lines, "\n")
}

func severityTag(severity models.Severity) string {
	if severity == models.SeverityOverload {
		return "[OVERLOAD]"
	}
	return "[CRITICAL]"
}

// FormatEmailHTML renders the full HTML table email for a batch.
func FormatEmailHTML(batch *models.AlertBatch) string {
	var b strings.Builder

	b.WriteString(`<html>
<head>
<style>
body { font-family: Arial, sans-serif; }
.critical { color: #dc3545; font-weight: bold; }
.overload { color: #8b0000; font-weight: bold; }
table { border-collapse: collapse; width: 100%; }
th, td { padding: 8px; text-align: left; border-bottom: 1px solid #ddd; }
th { background-color: #f2f2f2; }
</style>
</head>
<body>
<h2>LineLink: Transmission Line Alerts</h2>
<p>The following lines exceed safe operating limits:</p>
<table>
<tr><th>Severity</th><th>Line</th><th>Loading</th><th>Flow/Rating</th></tr>
`)

	for _, candidate := range batch.Email {
		s := candidate.Snapshot
		b.WriteString(fmt.Sprintf("<tr class=%q><td>%s</td><td>%s</td><td>%.1f%%</td><td>%.1f / %.1f MVA</td></tr>\n",
			strings.ToLower(string(candidate.Severity)),
			candidate.Severity,
			s.BranchName,
			s.LoadingPct,
			s.FlowMVA,
			s.RatingMVA,
		))
	}

	b.WriteString(`</table>
<br>
<p><em>This is an automated alert from LineLink. Please review the dashboard for details.</em></p>
</body>
</html>
`)
	return b.String()
}
