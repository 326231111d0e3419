package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemNeverStepsBackwards(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	readings := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	s := &System{wall: func() time.Time {
		r := readings[i]
		i++
		return r
	}}

	assert.Equal(t, base, s.Now())
	assert.Equal(t, base, s.Now(), "backward step repeats the last reading")
	assert.Equal(t, base.Add(time.Second), s.Now())
}

func TestSystemReportsUTC(t *testing.T) {
	now := NewSystem().Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestManual(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m := NewManual(base)
	m.Advance(time.Hour)
	assert.Equal(t, base.Add(time.Hour), m.Now())
	m.Set(base)
	assert.Equal(t, base, m.Now())
}
