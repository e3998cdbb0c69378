package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersInHeaderOrder(t *testing.T) {
	data := Dataset{Headers: []string{"Club Name", "Members Count", "Status"}}
	data.Append("Chess, Advanced", "12", "Active")
	data.Append("Drama")

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Club Name,Members Count,Status\n\"Chess, Advanced\",12,Active\nDrama,,\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRenderDocument(t *testing.T) {
	clubs := Dataset{Headers: []string{"Club", "Members"}}
	clubs.Append("Robotics", "8")

	out, err := NewPDFExporter().RenderDocument(Document{
		Title:       "School Clubs MS Report",
		GeneratedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Sections: []Section{
			{Heading: "Clubs Overview", Table: clubs},
			{Heading: "Upcoming Events", Empty: "No upcoming events."},
			{Heading: "Recent Posts", Lines: []string{"Robotics: Kickoff meeting"}},
		},
		Footer: "End of Report",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRender(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "empty")
	assert.Error(t, err)

	data := Dataset{Headers: []string{"Course", "Grade"}}
	data.Append("MTH101", "A")
	out, err := NewPDFExporter().Render(data, "Grades")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnopqrstuvwxyz", 18))
}
