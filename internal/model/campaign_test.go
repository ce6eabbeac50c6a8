package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextOccurrencePreservesTimeOfDay(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		repeat string
		want   time.Time
	}{
		{RepeatDaily, time.Date(2025, 3, 11, 14, 30, 0, 0, time.UTC)},
		{RepeatWeekly, time.Date(2025, 3, 17, 14, 30, 0, 0, time.UTC)},
		{RepeatMonthly, time.Date(2025, 4, 10, 14, 30, 0, 0, time.UTC)},
		{RepeatNone, at},
	}

	for _, tc := range cases {
		c := &Campaign{ScheduledAt: at, Repeat: tc.repeat}
		assert.Equal(t, tc.want, c.NextOccurrence(), "repeat=%s", tc.repeat)
	}
}

func TestNextOccurrenceMonthlyNormalizesShortMonths(t *testing.T) {
	// Jan 31 + 1 month follows time.AddDate normalization
	c := &Campaign{
		ScheduledAt: time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC),
		Repeat:      RepeatMonthly,
	}
	assert.Equal(t, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), c.NextOccurrence())
}

func TestRepeats(t *testing.T) {
	assert.False(t, (&Campaign{Repeat: ""}).Repeats())
	assert.False(t, (&Campaign{Repeat: RepeatNone}).Repeats())
	assert.True(t, (&Campaign{Repeat: RepeatDaily}).Repeats())
}

func TestAttachment(t *testing.T) {
	text := &Campaign{Message: "hi"}
	assert.Nil(t, text.Attachment())

	media := &Campaign{MediaURL: "https://cdn.example.com/a.pdf", MediaName: "a.pdf", MediaMime: "application/pdf"}
	att := media.Attachment()
	assert.Equal(t, "https://cdn.example.com/a.pdf", att.Media)
	assert.Equal(t, "document", att.MediaType())
}
