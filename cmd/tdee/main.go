// CLI that prints the energy result for one profile, without the API server.
// Usage: go run ./cmd/tdee -sex male -age 25 -height 180 -weight 80 -activity moderate
//
//	[-strategy optimal] [-weeks 12] [-format text|json|yaml]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"lg/oxyn-energy-api/energy"

	"gopkg.in/yaml.v3"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, computes and writes the result to stdout. It returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tdee", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sex := fs.String("sex", "", "male | female")
	age := fs.Int("age", 0, "age in years (15-80)")
	height := fs.Int("height", 0, "height in cm (140-220)")
	weight := fs.Float64("weight", 0, "weight in kg (40-200)")
	activity := fs.String("activity", string(energy.Moderate), "sedentary | light | moderate | very_active | athlete")
	strategy := fs.String("strategy", string(energy.DefaultStrategy), "soft | optimal | aggressive")
	weeks := fs.Int("weeks", energy.DefaultWeeks, "projection horizon in weeks")
	format := fs.String("format", "text", "output format: text | json | yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	res, err := energy.Calculate(energy.Input{
		Profile: energy.Profile{
			Sex:      energy.Sex(*sex),
			AgeYears: *age,
			HeightCM: *height,
			WeightKG: *weight,
		},
		ActivityLevel: energy.ActivityLevel(*activity),
		Strategy:      energy.DeficitStrategy(*strategy),
		Weeks:         *weeks,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := write(stdout, *format, res); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

var errUnknownFormat = errors.New("unknown format")

func write(w io.Writer, format string, res energy.Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		writeText(w, res)
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

func writeText(w io.Writer, res energy.Result) {
	fmt.Fprintf(w, "BMR:              %d kcal\n", res.BMR)
	fmt.Fprintf(w, "TDEE:             %d kcal (x%.3g)\n", res.TDEE, res.ActivityMultiplier)
	fmt.Fprintf(w, "Target:           %d kcal (x%.2g)\n", res.TargetCalories, res.StrategyMultiplier)
	fmt.Fprintf(w, "Daily deficit:    %d kcal\n", res.DailyDeficitKcal)
	fmt.Fprintf(w, "Loss:             %.2f kg/week, %.1f kg/month, %.1f kg over %d weeks\n",
		res.WeeklyLossKG, res.MonthlyLossKG, res.TotalLossKG, res.Weeks)
	fmt.Fprintf(w, "Hydration:        %.1f L/day\n", res.HydrationLiters)

	fmt.Fprintln(w, "\nMacros")
	for _, m := range []struct {
		name string
		t    energy.MacroTarget
	}{{"protein", res.Macros.Protein}, {"fat", res.Macros.Fat}, {"carb", res.Macros.Carb}} {
		fmt.Fprintf(w, "  %-8s %4d g  %5d kcal  %2d%%\n", m.name, m.t.Grams, m.t.Kcal, m.t.Pct)
	}

	fmt.Fprintln(w, "\nBreakdown")
	fmt.Fprintf(w, "  basal %d  neat %d  eat %d  tef %d\n",
		res.Breakdown.Basal, res.Breakdown.NEAT, res.Breakdown.EAT, res.Breakdown.TEF)

	fmt.Fprintln(w, "\nZones")
	for _, z := range res.Zones {
		fmt.Fprintf(w, "  %-15s %5d kcal\n", z.Name, z.Kcal)
	}

	fmt.Fprintln(w, "\nProjection")
	for _, p := range res.Projection {
		fmt.Fprintf(w, "  week %3d  %6.1f kg\n", p.Week, p.WeightKG)
	}
}
