package payroll

import (
	"math"

	"workforce/apperror"
)

const (
	DefaultHoursPerEvent      = 8
	DefaultWeeklyThreshold    = 40
	DefaultOvertimeMultiplier = 1.5
)

// Policy turns verified events into pay. Every verified event is credited
// with HoursPerEvent hours; hours beyond WeeklyThreshold within one
// computation window are overtime paid at OvertimeMultiplier.
type Policy struct {
	HourlyRate         float64 `json:"hourly_rate"`
	HoursPerEvent      float64 `json:"hours_per_event"`
	WeeklyThreshold    float64 `json:"weekly_threshold"`
	OvertimeMultiplier float64 `json:"overtime_multiplier"`
}

func DefaultPolicy(hourlyRate float64) Policy {
	return Policy{
		HourlyRate:         hourlyRate,
		HoursPerEvent:      DefaultHoursPerEvent,
		WeeklyThreshold:    DefaultWeeklyThreshold,
		OvertimeMultiplier: DefaultOvertimeMultiplier,
	}
}

func (p Policy) Validate() error {
	switch {
	case !(p.HourlyRate >= 0) || math.IsInf(p.HourlyRate, 0):
		return apperror.New(apperror.KindValidation, "hourly_rate must be a non-negative number")
	case !(p.HoursPerEvent > 0) || math.IsInf(p.HoursPerEvent, 0):
		return apperror.New(apperror.KindValidation, "hours_per_event must be positive")
	case !(p.WeeklyThreshold >= 0) || math.IsInf(p.WeeklyThreshold, 0):
		return apperror.New(apperror.KindValidation, "weekly_threshold must be non-negative")
	case !(p.OvertimeMultiplier >= 1) || math.IsInf(p.OvertimeMultiplier, 0):
		return apperror.New(apperror.KindValidation, "overtime_multiplier must be at least 1")
	}
	return nil
}

// Figures are the hours and pay for one user in one window.
type Figures struct {
	VerifiedEvents int     `json:"verified_events"`
	HoursWorked    float64 `json:"hours_worked"`
	RegularHours   float64 `json:"regular_hours"`
	OvertimeHours  float64 `json:"overtime_hours"`
	RegularPay     float64 `json:"regular_pay"`
	OvertimePay    float64 `json:"overtime_pay"`
	TotalPay       float64 `json:"total_pay"`
}

// Calculate applies p to a count of verified events.
func Calculate(events int, p Policy) Figures {
	hours := float64(events) * p.HoursPerEvent
	overtime := math.Max(0, hours-p.WeeklyThreshold)
	regular := hours - overtime

	regularPay := roundCents(regular * p.HourlyRate)
	overtimePay := roundCents(overtime * p.HourlyRate * p.OvertimeMultiplier)
	return Figures{
		VerifiedEvents: events,
		HoursWorked:    hours,
		RegularHours:   regular,
		OvertimeHours:  overtime,
		RegularPay:     regularPay,
		OvertimePay:    overtimePay,
		TotalPay:       roundCents(regularPay + overtimePay),
	}
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
