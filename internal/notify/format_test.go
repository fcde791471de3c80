package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linelink/linelink-go/internal/models"
)

func candidate(branch string, loadingPct float64, severity models.Severity) models.AlertCandidate {
	return models.AlertCandidate{
		Snapshot: models.LineSnapshot{
			LineName:   strings.Fields(branch)[0],
			BranchName: branch,
			FlowMVA:    loadingPct,
			RatingMVA:  100,
			LoadingPct: loadingPct,
			VoltageKV:  138,
		},
		Severity:   severity,
		DetectedAt: time.Date(2025, 6, 12, 12, 0, 0, 0, time.UTC),
	}
}

func testBatch() *models.AlertBatch {
	all := []models.AlertCandidate{
		candidate("SURF69 TO TURTLE69", 104.2, models.SeverityOverload),
		candidate("ALOHA138 TO HONOLULU138", 97.8, models.SeverityCritical),
		candidate("KAHE138 TO WAIAU138", 95.4, models.SeverityCritical),
	}
	return &models.AlertBatch{
		SMS:         all[:2],
		Email:       all,
		GeneratedAt: time.Date(2025, 6, 12, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatSMS(t *testing.T) {
	text := FormatSMS(testBatch())
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "LineLink Alert:", lines[0])
	assert.Equal(t, "[OVERLOAD] SURF69 TO TURTLE69: 104% loading", lines[1])
	assert.Equal(t, "[CRITICAL] ALOHA138 TO HONOLULU138: 98% loading", lines[2])
	assert.Equal(t, "+ 1 more. Check dashboard.", lines[3])
}

func TestFormatSMS_NoOverflowLine(t *testing.T) {
	batch := testBatch()
	batch.SMS = batch.Email

	text := FormatSMS(batch)
	assert.NotContains(t, text, "more. Check dashboard.")
	assert.Len(t, strings.Split(text, "\n"), 4)
}

func TestFormatSMS_EmptyBatch(t *testing.T) {
	assert.Equal(t, "No alerts at this time.", FormatSMS(&models.AlertBatch{}))
}

func TestFormatEmailHTML(t *testing.T) {
	html := FormatEmailHTML(testBatch())

	assert.Contains(t, html, "<h2>LineLink: Transmission Line Alerts</h2>")
	// All email candidates appear, not only the SMS top N.
	assert.Contains(t, html, "SURF69 TO TURTLE69")
	assert.Contains(t, html, "ALOHA138 TO HONOLULU138")
	assert.Contains(t, html, "KAHE138 TO WAIAU138")
	assert.Contains(t, html, `<tr class="overload">`)
	assert.Contains(t, html, `<tr class="critical">`)
	assert.Contains(t, html, "104.2%")
	assert.Contains(t, html, "104.2 / 100.0 MVA")
}
