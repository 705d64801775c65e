package core

import (
	"testing"
	"time"
)

func TestNextRecurringDate(t *testing.T) {
	from := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		interval RecurringInterval
		want     time.Time
	}{
		{Daily, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)},
		{Weekly, time.Date(2025, 2, 7, 9, 0, 0, 0, time.UTC)},
		{Monthly, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{Yearly, time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)},
		{"HOURLY", from},
	}
	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			if got := NextRecurringDate(from, tt.interval); !got.Equal(tt.want) {
				t.Errorf("NextRecurringDate(%s) = %v, want %v", tt.interval, got, tt.want)
			}
		})
	}
}

func TestStepperFor(t *testing.T) {
	if StepperFor(Weekly) == nil {
		t.Fatal("expected weekly stepper")
	}
	if StepperFor("") != nil {
		t.Fatal("expected nil stepper for empty interval")
	}
}
