package main

import (
	"net/http"
	"strconv"
	"time"

	"lg/oxyn-energy-api/energy"

	"github.com/gin-gonic/gin"
)

// listActivityLevels returns the activity selector options.
// GET /api/energy/activity-levels.
func (h *Handler) listActivityLevels(c *gin.Context) {
	c.JSON(http.StatusOK, energy.ActivityLevels())
}

// listStrategies returns the deficit strategy options, the recommended one flagged.
// GET /api/energy/strategies.
func (h *Handler) listStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, energy.Strategies())
}

// getCalorieZones returns the calorie zone table for a known TDEE.
// GET /api/energy/zones?tdee=N.
func (h *Handler) getCalorieZones(c *gin.Context) {
	raw := c.Query("tdee")
	if raw == "" {
		apiError(c, http.StatusBadRequest, "tdee query param is required")
		return
	}
	tdee, err := strconv.Atoi(raw)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid tdee, expected an integer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tdee": tdee, "zones": energy.ComputeCalorieZones(tdee)})
}

// calculate runs the engine on the posted calculator form. The projection timeline
// starts at start_date, or today when omitted.
// POST /api/energy/calculate.
func (h *Handler) calculate(c *gin.Context) {
	var body calculatorRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	in, res, ok := h.evaluate(c, body)
	if !ok {
		return
	}

	start := h.today()
	if body.StartDate != nil {
		start = body.StartDate.Time
	}

	h.metrics.CounterCalculations.WithLabelValues(string(in.ActivityLevel), string(in.Strategy)).Inc()
	c.JSON(http.StatusOK, calculatorResponse{
		Result:   res,
		Timeline: timeline(res.Projection, start),
	})
}

// evaluate validates body and computes its result. On failure the 400 has already been
// written and ok is false.
func (h *Handler) evaluate(c *gin.Context, body calculatorRequest) (energy.Input, energy.Result, bool) {
	in, err := body.toInput()
	if err != nil {
		h.rejectInput(c, err)
		return energy.Input{}, energy.Result{}, false
	}
	res, err := energy.Calculate(in)
	if err != nil {
		h.rejectInput(c, err)
		return energy.Input{}, energy.Result{}, false
	}
	return in, res, true
}

// today is midnight UTC of the current day.
func (h *Handler) today() time.Time {
	return h.now().UTC().Truncate(24 * time.Hour)
}
