package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekStartFor(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "wednesday maps to preceding monday",
			in:   time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday maps to itself at midnight",
			in:   time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday belongs to the week started six days earlier",
			in:   time.Date(2025, 3, 16, 1, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStartFor(tt.in))
		})
	}
}
