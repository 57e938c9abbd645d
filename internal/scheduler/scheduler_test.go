package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midweek rolls to upcoming saturday",
			now:  time.Date(2026, 9, 2, 15, 30, 0, 0, time.UTC), // Wednesday
			want: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "saturday after midnight waits a full week",
			now:  time.Date(2026, 9, 5, 0, 0, 1, 0, time.UTC),
			want: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "friday just before midnight fires next day",
			now:  time.Date(2026, 9, 4, 23, 59, 59, 0, time.UTC),
			want: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := nextRun(tc.now)

			require.Equal(t, tc.want, got)
			require.Equal(t, time.Saturday, got.Weekday())
		})
	}
}
