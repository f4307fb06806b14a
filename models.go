package main

import (
	"fmt"
	"time"

	"lg/oxyn-energy-api/energy"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

/* ─── Requests ───────────────────────────────────────────────────────── */

// calculatorRequest is the calculator form as posted by the frontend. Profile numbers are
// pointers so a missing field is reported instead of silently becoming zero.
type calculatorRequest struct {
	Sex           energy.Sex             `json:"sex"`
	AgeYears      *int                   `json:"age_years"`
	HeightCM      *int                   `json:"height_cm"`
	WeightKG      *float64               `json:"weight_kg"`
	ActivityLevel energy.ActivityLevel   `json:"activity_level"`
	Strategy      energy.DeficitStrategy `json:"strategy"`
	Weeks         int                    `json:"weeks"`
	StartDate     *DateOnly              `json:"start_date"`
}

// toInput converts the form into engine input. Missing profile fields wrap
// energy.ErrInvalidProfile like every other profile failure.
func (r calculatorRequest) toInput() (energy.Input, error) {
	switch {
	case r.Sex == "":
		return energy.Input{}, fmt.Errorf("%w: sex is required", energy.ErrInvalidProfile)
	case r.AgeYears == nil:
		return energy.Input{}, fmt.Errorf("%w: age_years is required", energy.ErrInvalidProfile)
	case r.HeightCM == nil:
		return energy.Input{}, fmt.Errorf("%w: height_cm is required", energy.ErrInvalidProfile)
	case r.WeightKG == nil:
		return energy.Input{}, fmt.Errorf("%w: weight_kg is required", energy.ErrInvalidProfile)
	}

	strategy := r.Strategy
	if strategy == "" {
		strategy = energy.DefaultStrategy
	}
	return energy.Input{
		Profile: energy.Profile{
			Sex:      r.Sex,
			AgeYears: *r.AgeYears,
			HeightCM: *r.HeightCM,
			WeightKG: *r.WeightKG,
		},
		ActivityLevel: r.ActivityLevel,
		Strategy:      strategy,
		Weeks:         r.Weeks,
	}, nil
}

/* ─── Responses ──────────────────────────────────────────────────────── */

// datedProjectionPoint is a projection point placed on the calendar.
type datedProjectionPoint struct {
	Week     int      `json:"week"`
	Date     DateOnly `json:"date"`
	WeightKG float64  `json:"weight_kg"`
}

// calculatorResponse is the response shape for POST /api/energy/calculate.
type calculatorResponse struct {
	Result   energy.Result          `json:"result"`
	Timeline []datedProjectionPoint `json:"timeline"`
}

// snapshotResponse is returned by the explicit snapshot saves: what was stored and the
// full result it was computed from.
type snapshotResponse struct {
	Snapshot snapshot      `json:"snapshot"`
	Result   energy.Result `json:"result"`
}

// timeline stamps each projection point with start + 7 days per week.
func timeline(points []energy.ProjectionPoint, start time.Time) []datedProjectionPoint {
	out := make([]datedProjectionPoint, len(points))
	for i, p := range points {
		out[i] = datedProjectionPoint{
			Week:     p.Week,
			Date:     DateOnly{start.AddDate(0, 0, 7*p.Week)},
			WeightKG: p.WeightKG,
		}
	}
	return out
}
