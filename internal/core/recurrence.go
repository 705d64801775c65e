package core

import "time"

// Stepper advances a recurring transaction to its next occurrence.
// Each interval has its own implementation.
type Stepper interface {
	Next(from time.Time) time.Time
}

type (
	DailyStepper   struct{}
	WeeklyStepper  struct{}
	MonthlyStepper struct{}
	YearlyStepper  struct{}
)

func (DailyStepper) Next(from time.Time) time.Time   { return from.AddDate(0, 0, 1) }
func (WeeklyStepper) Next(from time.Time) time.Time  { return from.AddDate(0, 0, 7) }
func (MonthlyStepper) Next(from time.Time) time.Time { return from.AddDate(0, 1, 0) }
func (YearlyStepper) Next(from time.Time) time.Time  { return from.AddDate(1, 0, 0) }

var steppers = map[RecurringInterval]Stepper{
	Daily:   DailyStepper{},
	Weekly:  WeeklyStepper{},
	Monthly: MonthlyStepper{},
	Yearly:  YearlyStepper{},
}

// StepperFor returns the stepper for interval, or nil when the interval is
// not recognised.
func StepperFor(interval RecurringInterval) Stepper {
	return steppers[interval]
}

// NextRecurringDate returns the first occurrence after from. Month and year
// steps normalise overflowing days the way time.AddDate does (Jan 31 plus a
// month lands in early March). Unknown intervals return from unchanged.
func NextRecurringDate(from time.Time, interval RecurringInterval) time.Time {
	s := StepperFor(interval)
	if s == nil {
		return from
	}
	return s.Next(from)
}
