package main

import (
	"errors"
	"net/http"

	"lg/oxyn-energy-api/energy"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// snapshotKey reads and validates the :key path param. On failure the 400 has already
// been written and ok is false.
func snapshotKey(c *gin.Context) (string, bool) {
	key := c.Param("key")
	if !snapshotKeyPattern.MatchString(key) {
		apiError(c, http.StatusBadRequest, "key must be 1-128 characters of letters, digits, '-' or '_'")
		return "", false
	}
	return key, true
}

// newSnapshot builds the stored form of a validated calculator input.
func (h *Handler) newSnapshot(key string, in energy.Input) snapshot {
	return snapshot{
		Key:           key,
		Profile:       in.Profile,
		ActivityLevel: in.ActivityLevel,
		Strategy:      in.Strategy,
		UpdatedAt:     h.now().UTC(),
	}
}

// getSnapshot returns the stored calculator state for key.
// GET /api/snapshots/:key. 404 if nothing was ever saved under key.
func (h *Handler) getSnapshot(c *gin.Context) {
	key, ok := snapshotKey(c)
	if !ok {
		return
	}

	s, err := h.store.Get(c.Request.Context(), key)
	if errors.Is(err, errSnapshotNotFound) {
		apiError(c, http.StatusNotFound, "snapshot not found")
		return
	}
	if err != nil {
		log.Errorf("[getSnapshot] %v", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch snapshot")
		return
	}

	c.JSON(http.StatusOK, s)
}

// createSnapshot computes a result for the posted form and stores it under a new key.
// POST /api/snapshots. Responds 201 with the snapshot (including its key) and result.
func (h *Handler) createSnapshot(c *gin.Context) {
	h.saveSnapshot(c, uuid.NewString(), http.StatusCreated)
}

// putSnapshot computes a result for the posted form and stores it under key right away,
// replacing any pending draft. PUT /api/snapshots/:key.
func (h *Handler) putSnapshot(c *gin.Context) {
	key, ok := snapshotKey(c)
	if !ok {
		return
	}
	h.saveSnapshot(c, key, http.StatusOK)
}

// saveSnapshot is the shared body of createSnapshot and putSnapshot: the stored
// LastResult is the TDEE just computed.
func (h *Handler) saveSnapshot(c *gin.Context, key string, status int) {
	var body calculatorRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	in, res, ok := h.evaluate(c, body)
	if !ok {
		return
	}

	s := h.newSnapshot(key, in)
	s.LastResult = &lastResult{Calories: res.TDEE, ComputedAt: s.UpdatedAt}

	err := h.saver.SaveNow(c.Request.Context(), s)
	if errors.Is(err, errSaverClosed) {
		apiError(c, http.StatusServiceUnavailable, "snapshot saver is shutting down")
		return
	}
	if err != nil {
		log.Errorf("[saveSnapshot] %s: %v", key, err)
		apiError(c, http.StatusInternalServerError, "failed to save snapshot")
		return
	}

	h.metrics.CounterCalculations.WithLabelValues(string(in.ActivityLevel), string(in.Strategy)).Inc()
	c.JSON(status, snapshotResponse{Snapshot: s, Result: res})
}

// putSnapshotDraft schedules a debounced save of the form inputs. The previously stored
// LastResult is kept. PUT /api/snapshots/:key/draft. Responds 202.
func (h *Handler) putSnapshotDraft(c *gin.Context) {
	key, ok := snapshotKey(c)
	if !ok {
		return
	}

	var body calculatorRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	in, _, ok := h.evaluate(c, body)
	if !ok {
		return
	}

	if err := h.saver.Schedule(h.newSnapshot(key, in)); err != nil {
		apiError(c, http.StatusServiceUnavailable, "snapshot saver is shutting down")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"key": key, "status": "scheduled"})
}

// deleteSnapshot removes the snapshot and any pending draft for key.
// DELETE /api/snapshots/:key. Returns 204 on success, 404 if not found.
func (h *Handler) deleteSnapshot(c *gin.Context) {
	key, ok := snapshotKey(c)
	if !ok {
		return
	}

	err := h.saver.Delete(c.Request.Context(), key)
	if errors.Is(err, errSnapshotNotFound) {
		apiError(c, http.StatusNotFound, "snapshot not found")
		return
	}
	if err != nil {
		log.Errorf("[deleteSnapshot] %v", err)
		apiError(c, http.StatusInternalServerError, "failed to delete snapshot")
		return
	}

	c.Status(http.StatusNoContent)
}
