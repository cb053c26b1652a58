package platforms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	for _, in := range []string{"2024-03-05 10:30:00", "2024-03-05T10:30:00Z", "2024-03-05T10:30:00", "05/03/2024 10:30:00"} {
		got, ok := parseTime(in)
		assert.True(t, ok, in)
		assert.True(t, want.Equal(got), in)
	}

	_, ok := parseTime("")
	assert.False(t, ok)
	_, ok = parseTime("yesterday")
	assert.False(t, ok)
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "plain text", htmlToText("  plain text "))
	assert.Equal(t, "Sea view\nTwo bedrooms", htmlToText("<p>Sea   view</p><p>Two <b>bedrooms</b></p>"))
	assert.Equal(t, "line one\nline two", htmlToText("line one<br/>line two"))
	assert.Equal(t, "A & B", htmlToText("A &amp; B"))
}

func TestCollectAmenities(t *testing.T) {
	basic, other, warnings := collectAmenities([]string{"Balcony", "Gym", "Shared Gym", "Rooftop cinema"}, amenityByName)

	assert.Equal(t, []string{"balcony", "shared-gym"}, basic)
	assert.Equal(t, []string{"Rooftop cinema"}, other)
	assert.Len(t, warnings, 1)
}
