package energy

import "math"

// KcalPerKG is the energy content of 1kg of adipose tissue used by every projection.
const KcalPerKG = 7700.0

// Macro ratios (share of kcal) and energy density (kcal per gram).
const (
	proteinRatio = 0.30
	fatRatio     = 0.25
	carbRatio    = 0.45

	proteinKcalPerG = 4.0
	fatKcalPerG     = 9.0
	carbKcalPerG    = 4.0
)

// Share of (TDEE - BMR) attributed to each non-basal component.
const (
	neatShare = 0.55
	eatShare  = 0.30
	tefShare  = 0.15
)

// hydrationLitersPerKG is 35ml of water per kg of body weight.
const hydrationLitersPerKG = 0.035

// roundKcal rounds half up (toward +Inf), so -2.5 becomes -2 like the displayed values.
func roundKcal(x float64) int {
	return int(math.Floor(x + 0.5))
}

// round1 rounds to one decimal place, half away from zero.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ComputeBMR returns the Mifflin-St Jeor basal metabolic rate in kcal/day.
// Numeric inputs are not range checked, so extreme values can yield zero or negative BMR,
// which is returned as is. A sex other than Male or Female has no sex constant and
// yields 0; use ValidateProfile to reject it first.
func ComputeBMR(sex Sex, weightKG float64, heightCM, ageYears int) int {
	base := 10*weightKG + 6.25*float64(heightCM) - 5*float64(ageYears)
	switch sex {
	case Male:
		return roundKcal(base + 5)
	case Female:
		return roundKcal(base - 161)
	default:
		return 0
	}
}

// ComputeTDEE scales bmr by the activity multiplier.
func ComputeTDEE(bmr int, activityMultiplier float64) int {
	return roundKcal(float64(bmr) * activityMultiplier)
}

// ComputeMacros splits targetCalories 30/25/45 into protein, fat and carbohydrate.
// Each value is rounded on its own, so the kcal shares may drift from targetCalories
// by a kcal or two.
func ComputeMacros(targetCalories int) Macros {
	c := float64(targetCalories)
	return Macros{
		Protein: MacroTarget{
			Grams: roundKcal(c * proteinRatio / proteinKcalPerG),
			Kcal:  roundKcal(c * proteinRatio),
			Pct:   30,
		},
		Fat: MacroTarget{
			Grams: roundKcal(c * fatRatio / fatKcalPerG),
			Kcal:  roundKcal(c * fatRatio),
			Pct:   25,
		},
		Carb: MacroTarget{
			Grams: roundKcal(c * carbRatio / carbKcalPerG),
			Kcal:  roundKcal(c * carbRatio),
			Pct:   45,
		},
	}
}

// ComputeHydrationTarget returns the daily water target in liters, one decimal.
func ComputeHydrationTarget(weightKG float64) float64 {
	return round1(weightKG * hydrationLitersPerKG)
}

// ComputeTDEEBreakdown splits tdee into basal, NEAT, EAT and TEF. The non-basal parts
// share tdee-bmr 55/30/15 and, like the macros, need not sum back to tdee exactly.
func ComputeTDEEBreakdown(bmr, tdee int) Breakdown {
	delta := float64(tdee - bmr)
	return Breakdown{
		Basal: bmr,
		NEAT:  roundKcal(delta * neatShare),
		EAT:   roundKcal(delta * eatShare),
		TEF:   roundKcal(delta * tefShare),
	}
}

// DailyDeficit is the kcal/day gap between tdee and the strategy target. It is negative
// for a surplus (strategyMultiplier > 1).
func DailyDeficit(tdee int, strategyMultiplier float64) float64 {
	return float64(tdee) * (1 - strategyMultiplier)
}

// WeeklyLoss converts the daily deficit into kg lost per week.
func WeeklyLoss(tdee int, strategyMultiplier float64) float64 {
	return DailyDeficit(tdee, strategyMultiplier) * 7 / KcalPerKG
}

// ComputeWeightProjection extrapolates body weight linearly for weeks 0..weeks inclusive.
// Every point, week 0 included, is rounded to one decimal, so a one-decimal startWeight
// comes back unchanged at week 0 and on every week of a maintenance strategy. A negative
// weeks yields an empty projection.
func ComputeWeightProjection(startWeight float64, tdee int, strategyMultiplier float64, weeks int) []ProjectionPoint {
	if weeks < 0 {
		return []ProjectionPoint{}
	}

	weekly := WeeklyLoss(tdee, strategyMultiplier)
	points := make([]ProjectionPoint, 0, weeks+1)
	for i := 0; i <= weeks; i++ {
		points = append(points, ProjectionPoint{
			Week:     i,
			WeightKG: round1(startWeight - float64(i)*weekly),
		})
	}
	return points
}

// ComputeCalorieZones returns the fixed zone table for tdee, from aggressive cut to surplus.
func ComputeCalorieZones(tdee int) []CalorieZone {
	zones := make([]CalorieZone, len(calorieZones))
	for i, z := range calorieZones {
		zones[i] = CalorieZone{Name: z.name, Kcal: roundKcal(float64(tdee) * z.ratio)}
	}
	return zones
}

// ComputeStrategyOutlook returns, for every strategy, its calorie target and the weight
// lost over a four-week month.
func ComputeStrategyOutlook(tdee int) []StrategyOutlook {
	options := Strategies()
	outlook := make([]StrategyOutlook, len(options))
	for i, o := range options {
		outlook[i] = StrategyOutlook{
			Strategy:       o.Strategy,
			TargetCalories: roundKcal(float64(tdee) * o.Multiplier),
			MonthlyLossKG:  round1(WeeklyLoss(tdee, o.Multiplier) * 4),
		}
	}
	return outlook
}
