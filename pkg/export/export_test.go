package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Day", "Start", "End", "Subject"},
		Rows: []map[string]string{
			{"Day": "MONDAY", "Start": "08:00", "End": "09:00", "Subject": "Mathematics"},
			{"Day": "MONDAY", "Start": "09:00", "End": "10:00", "Subject": "Physics"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Day,Start,End,Subject", lines[0])
	assert.Contains(t, lines[1], "Mathematics")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Balance"},
		Rows:    []map[string]string{{"Student": "A", "Balance": "1500"}},
	}, "fee recovery")
	require.NoError(t, err)
	assert.True(t, len(payload) > 0)
	assert.Equal(t, "%PDF", string(payload[:4]))
}

func TestPDFExporterLandscape(t *testing.T) {
	exporter := NewLandscapePDFExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Slot", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"},
		Rows:    []map[string]string{{"Slot": "08:00-09:00", "MONDAY": "Math"}},
	}, "class timetable")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(payload[:4]))
}
