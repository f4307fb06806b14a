package energy

import (
	"errors"
	"fmt"
	"math"
)

// DefaultWeeks is the projection horizon used when the caller leaves it unset.
const DefaultWeeks = 12

// MaxWeeks bounds the projection horizon accepted by Calculate.
const MaxWeeks = 104

// Profile bounds enforced by Calculate. The pure Compute functions ignore them.
const (
	MinAgeYears = 15
	MaxAgeYears = 80
	MinHeightCM = 140
	MaxHeightCM = 220
	MinWeightKG = 40.0
	MaxWeightKG = 200.0
)

var (
	ErrInvalidProfile       = errors.New("invalid profile")
	ErrUnknownActivityLevel = errors.New("unknown activity level")
	ErrUnknownStrategy      = errors.New("unknown deficit strategy")
	ErrInvalidHorizon       = errors.New("invalid projection horizon")
)

// Input is everything Calculate needs. An empty Strategy selects DefaultStrategy and a
// zero Weeks selects DefaultWeeks.
type Input struct {
	Profile       Profile         `json:"profile"`
	ActivityLevel ActivityLevel   `json:"activity_level"`
	Strategy      DeficitStrategy `json:"strategy"`
	Weeks         int             `json:"weeks"`
}

// Evaluate computes the full Result from raw multipliers without any validation.
func Evaluate(p Profile, activityMultiplier, strategyMultiplier float64, weeks int) Result {
	bmr := ComputeBMR(p.Sex, p.WeightKG, p.HeightCM, p.AgeYears)
	tdee := ComputeTDEE(bmr, activityMultiplier)
	target := roundKcal(float64(tdee) * strategyMultiplier)
	weekly := WeeklyLoss(tdee, strategyMultiplier)

	return Result{
		Profile:            p,
		ActivityMultiplier: activityMultiplier,
		StrategyMultiplier: strategyMultiplier,
		Weeks:              weeks,

		BMR:              bmr,
		TDEE:             tdee,
		TargetCalories:   target,
		DailyDeficitKcal: roundKcal(DailyDeficit(tdee, strategyMultiplier)),
		WeeklyLossKG:     round2(weekly),
		MonthlyLossKG:    round1(weekly * 4),
		TotalLossKG:      round1(float64(weeks) * weekly),
		HydrationLiters:  ComputeHydrationTarget(p.WeightKG),

		Macros:     ComputeMacros(target),
		Breakdown:  ComputeTDEEBreakdown(bmr, tdee),
		Zones:      ComputeCalorieZones(tdee),
		Projection: ComputeWeightProjection(p.WeightKG, tdee, strategyMultiplier, weeks),
		Outlook:    ComputeStrategyOutlook(tdee),
	}
}

// Calculate validates in, resolves its named levels and returns the Result.
// Out of range values are rejected, never clamped.
func Calculate(in Input) (Result, error) {
	if err := ValidateProfile(in.Profile); err != nil {
		return Result{}, err
	}

	activity, ok := in.ActivityLevel.Multiplier()
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownActivityLevel, in.ActivityLevel)
	}

	strategy := in.Strategy
	if strategy == "" {
		strategy = DefaultStrategy
	}
	deficit, ok := strategy.Multiplier()
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	weeks := in.Weeks
	if weeks == 0 {
		weeks = DefaultWeeks
	}
	if weeks < 0 || weeks > MaxWeeks {
		return Result{}, fmt.Errorf("%w: %d weeks (want 1-%d)", ErrInvalidHorizon, weeks, MaxWeeks)
	}

	return Evaluate(in.Profile, activity, deficit, weeks), nil
}

// ValidateProfile reports whether p is complete and physiologically plausible. Every
// failure wraps ErrInvalidProfile.
func ValidateProfile(p Profile) error {
	if p.Sex != Male && p.Sex != Female {
		return fmt.Errorf("%w: sex must be male or female, got %q", ErrInvalidProfile, p.Sex)
	}
	if p.AgeYears < MinAgeYears || p.AgeYears > MaxAgeYears {
		return fmt.Errorf("%w: age_years must be between %d and %d, got %d",
			ErrInvalidProfile, MinAgeYears, MaxAgeYears, p.AgeYears)
	}
	if p.HeightCM < MinHeightCM || p.HeightCM > MaxHeightCM {
		return fmt.Errorf("%w: height_cm must be between %d and %d, got %d",
			ErrInvalidProfile, MinHeightCM, MaxHeightCM, p.HeightCM)
	}
	// NaN fails both comparisons, so check finiteness first.
	if math.IsNaN(p.WeightKG) || math.IsInf(p.WeightKG, 0) {
		return fmt.Errorf("%w: weight_kg must be a finite number", ErrInvalidProfile)
	}
	if p.WeightKG < MinWeightKG || p.WeightKG > MaxWeightKG {
		return fmt.Errorf("%w: weight_kg must be between %.0f and %.0f, got %g",
			ErrInvalidProfile, MinWeightKG, MaxWeightKG, p.WeightKG)
	}
	return nil
}
