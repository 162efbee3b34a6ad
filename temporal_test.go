package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTemporalStringFormatsDate(t *testing.T) {
	tm := Temporal{Time: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), HasDate: true}
	assert.Equal(t, "2026-03-07", tm.String())
}

func TestTemporalStringFormatsDateTimeWithoutFraction(t *testing.T) {
	tm := Temporal{
		Time:    time.Date(2026, 3, 7, 9, 5, 1, 0, time.UTC),
		HasDate: true,
		HasTime: true,
	}
	assert.Equal(t, "2026-03-07 09:05:01", tm.String())
}

func TestTemporalStringFormatsDateTimeWithMicroseconds(t *testing.T) {
	tm := Temporal{
		Time:    time.Date(2026, 3, 7, 9, 5, 1, 123000, time.UTC),
		HasDate: true,
		HasTime: true,
	}
	assert.Equal(t, "2026-03-07 09:05:01.000123", tm.String())
}

func TestTemporalStringFormatsBareTime(t *testing.T) {
	tm := Temporal{
		Time:    time.Date(0, 1, 1, 3, 4, 5, 0, time.UTC),
		HasTime: true,
	}
	assert.Equal(t, "03:04:05", tm.String())
}

func TestTemporalStringFormatsNegativeBareTime(t *testing.T) {
	tm := Temporal{
		Time:     time.Date(0, 1, 1, 1, 0, 0, 0, time.UTC),
		HasTime:  true,
		Negative: true,
	}
	assert.Equal(t, "-01:00:00", tm.String())
}
