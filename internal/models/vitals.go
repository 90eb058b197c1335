package models

import "time"

// Vital is one measured value. Present distinguishes "not measured" from a
// measured zero; TakenAt is the zero time when no timestamp was recorded.
type Vital[T int | float64] struct {
	Value   T
	Present bool
	TakenAt time.Time
}

// Measured returns a present vital.
func Measured[T int | float64](v T, at time.Time) Vital[T] {
	return Vital[T]{Value: v, Present: true, TakenAt: at}
}

// BloodPressure is recorded as one observation with two components.
type BloodPressure struct {
	Systolic  int
	Diastolic int
	Present   bool
	TakenAt   time.Time
}

type Vitals struct {
	BloodPressure BloodPressure
	Pulse         Vital[int]
	Temperature   Vital[float64] // °C
	Glucose       Vital[float64] // mg/dl
	Weight        Vital[float64] // kg
}

// Observations are the free-text findings recorded next to the vitals.
type Observations struct {
	Pain           string
	Responsiveness string
	LastDefecation time.Time
	Misc           string
}

type Patient struct {
	Name      string
	BirthDate time.Time // date only
	Gender    Gender
}
