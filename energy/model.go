// Package energy is the calculation engine behind the TDEE calculator: Mifflin-St Jeor
// BMR, activity-scaled TDEE, and the projections derived from them (macros, hydration,
// calorie zones, weekly weight trajectory). Every function is pure and stateless.
package energy

// Sex selects the Mifflin-St Jeor constant (+5 for male, -161 for female).
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Profile is the body data every computation needs. All four fields are required;
// the model never fills in defaults.
type Profile struct {
	Sex      Sex     `json:"sex"       yaml:"sex"`
	AgeYears int     `json:"age_years" yaml:"age_years"`
	HeightCM int     `json:"height_cm" yaml:"height_cm"`
	WeightKG float64 `json:"weight_kg" yaml:"weight_kg"`
}

/* ─── Activity levels ────────────────────────────────────────────────── */

// ActivityLevel names one of the five fixed TDEE multipliers.
type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	VeryActive ActivityLevel = "very_active"
	Athlete    ActivityLevel = "athlete"
)

// activityMultipliers is the single source of truth for valid activity levels.
var activityMultipliers = map[ActivityLevel]float64{
	Sedentary:  1.2,
	Light:      1.375,
	Moderate:   1.55,
	VeryActive: 1.725,
	Athlete:    1.9,
}

// Multiplier returns the TDEE multiplier for a, or ok=false for an unknown level.
func (a ActivityLevel) Multiplier() (float64, bool) {
	m, ok := activityMultipliers[a]
	return m, ok
}

// ActivityOption is one row of the activity selector shown by the frontend.
type ActivityOption struct {
	Level       ActivityLevel `json:"level"       yaml:"level"`
	Multiplier  float64       `json:"multiplier"  yaml:"multiplier"`
	Label       string        `json:"label"       yaml:"label"`
	Description string        `json:"description" yaml:"description"`
}

// ActivityLevels returns the activity options ordered from least to most active.
func ActivityLevels() []ActivityOption {
	return []ActivityOption{
		{Sedentary, activityMultipliers[Sedentary], "Sedentary", "Office / no sport"},
		{Light, activityMultipliers[Light], "Lightly active", "1-3 sessions / week"},
		{Moderate, activityMultipliers[Moderate], "Moderately active", "3-5 sessions / week"},
		{VeryActive, activityMultipliers[VeryActive], "Very active", "6-7 sessions / week"},
		{Athlete, activityMultipliers[Athlete], "Athlete", "Intense twice-daily training"},
	}
}

/* ─── Deficit strategies ─────────────────────────────────────────────── */

// DeficitStrategy names a caloric target ratio applied to TDEE.
type DeficitStrategy string

const (
	Soft       DeficitStrategy = "soft"
	Optimal    DeficitStrategy = "optimal"
	Aggressive DeficitStrategy = "aggressive"
)

// DefaultStrategy is preselected by the results view.
const DefaultStrategy = Optimal

var strategyMultipliers = map[DeficitStrategy]float64{
	Soft:       0.9,
	Optimal:    0.8,
	Aggressive: 0.7,
}

// Multiplier returns the TDEE ratio for s, or ok=false for an unknown strategy.
func (s DeficitStrategy) Multiplier() (float64, bool) {
	m, ok := strategyMultipliers[s]
	return m, ok
}

// StrategyOption is one row of the strategy selector.
type StrategyOption struct {
	Strategy    DeficitStrategy `json:"strategy"    yaml:"strategy"`
	Multiplier  float64         `json:"multiplier"  yaml:"multiplier"`
	Label       string          `json:"label"       yaml:"label"`
	Description string          `json:"description" yaml:"description"`
	Recommended bool            `json:"recommended" yaml:"recommended"`
}

// Strategies returns the strategy options from the gentlest deficit to the steepest.
func Strategies() []StrategyOption {
	return []StrategyOption{
		{Soft, strategyMultipliers[Soft], "Soft", "Gentle and sustainable", false},
		{Optimal, strategyMultipliers[Optimal], "Optimal", "Recommended", true},
		{Aggressive, strategyMultipliers[Aggressive], "Aggressive", "Short term only", false},
	}
}

/* ─── Calorie zones ──────────────────────────────────────────────────── */

// ZoneName identifies one row of the calorie zone table.
type ZoneName string

const (
	ZoneAggressiveCut ZoneName = "aggressive_cut"
	ZoneModerateCut   ZoneName = "moderate_cut"
	ZoneMildCut       ZoneName = "mild_cut"
	ZoneMaintenance   ZoneName = "maintenance"
	ZoneSurplus       ZoneName = "surplus"
)

// calorieZones is ordered; ComputeCalorieZones preserves this order.
var calorieZones = []struct {
	name  ZoneName
	ratio float64
}{
	{ZoneAggressiveCut, 0.7},
	{ZoneModerateCut, 0.8},
	{ZoneMildCut, 0.9},
	{ZoneMaintenance, 1.0},
	{ZoneSurplus, 1.15},
}

/* ─── Results ────────────────────────────────────────────────────────── */

// MacroTarget is one macronutrient's daily target.
type MacroTarget struct {
	Grams int `json:"g"    yaml:"g"`
	Kcal  int `json:"kcal" yaml:"kcal"`
	Pct   int `json:"pct"  yaml:"pct"`
}

// Macros is the fixed 30/25/45 protein/fat/carb split of a calorie target.
type Macros struct {
	Protein MacroTarget `json:"protein" yaml:"protein"`
	Fat     MacroTarget `json:"fat"     yaml:"fat"`
	Carb    MacroTarget `json:"carb"    yaml:"carb"`
}

// Breakdown is the display-only split of TDEE into its estimated components.
type Breakdown struct {
	Basal int `json:"basal" yaml:"basal"`
	NEAT  int `json:"neat"  yaml:"neat"`
	EAT   int `json:"eat"   yaml:"eat"`
	TEF   int `json:"tef"   yaml:"tef"`
}

// CalorieZone is one named row of the calorie zone table.
type CalorieZone struct {
	Name ZoneName `json:"name" yaml:"name"`
	Kcal int      `json:"kcal" yaml:"kcal"`
}

// ProjectionPoint is the projected body weight at the end of a week.
type ProjectionPoint struct {
	Week     int     `json:"week"      yaml:"week"`
	WeightKG float64 `json:"weight_kg" yaml:"weight_kg"`
}

// StrategyOutlook summarizes what one strategy means for a given TDEE.
type StrategyOutlook struct {
	Strategy       DeficitStrategy `json:"strategy"        yaml:"strategy"`
	TargetCalories int             `json:"target_calories" yaml:"target_calories"`
	MonthlyLossKG  float64         `json:"monthly_loss_kg" yaml:"monthly_loss_kg"`
}

// Result is the full EnergyResult for one profile, activity level and strategy.
// It is a plain value; callers own it and may persist it.
type Result struct {
	Profile            Profile `json:"profile"             yaml:"profile"`
	ActivityMultiplier float64 `json:"activity_multiplier" yaml:"activity_multiplier"`
	StrategyMultiplier float64 `json:"strategy_multiplier" yaml:"strategy_multiplier"`
	Weeks              int     `json:"weeks"               yaml:"weeks"`

	BMR              int     `json:"bmr"                yaml:"bmr"`
	TDEE             int     `json:"tdee"               yaml:"tdee"`
	TargetCalories   int     `json:"target_calories"    yaml:"target_calories"`
	DailyDeficitKcal int     `json:"daily_deficit_kcal" yaml:"daily_deficit_kcal"`
	WeeklyLossKG     float64 `json:"weekly_loss_kg"     yaml:"weekly_loss_kg"`
	MonthlyLossKG    float64 `json:"monthly_loss_kg"    yaml:"monthly_loss_kg"`
	TotalLossKG      float64 `json:"total_loss_kg"      yaml:"total_loss_kg"`
	HydrationLiters  float64 `json:"hydration_liters"   yaml:"hydration_liters"`

	Macros     Macros            `json:"macros"     yaml:"macros"`
	Breakdown  Breakdown         `json:"breakdown"  yaml:"breakdown"`
	Zones      []CalorieZone     `json:"zones"      yaml:"zones"`
	Projection []ProjectionPoint `json:"projection" yaml:"projection"`
	Outlook    []StrategyOutlook `json:"outlook"    yaml:"outlook"`
}
