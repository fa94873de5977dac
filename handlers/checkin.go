package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"workforce/apperror"
	"workforce/attendance"
	"workforce/middleware"
	"workforce/models"
)

type Recorder interface {
	Record(ctx context.Context, sub attendance.Submission) (attendance.Outcome, error)
	Recent(ctx context.Context, userID uint, limit int) ([]models.CheckIn, error)
}

type CheckInHandler struct {
	recorder Recorder
	log      *zap.Logger
}

func NewCheckInHandler(recorder Recorder, log *zap.Logger) *CheckInHandler {
	return &CheckInHandler{recorder: recorder, log: log}
}

type checkInRequest struct {
	LocationID uint             `json:"location_id"`
	Latitude   *float64         `json:"latitude"`
	Longitude  *float64         `json:"longitude"`
	Direction  models.Direction `json:"direction"`
}

type checkInResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    models.CheckIn `json:"data"`
}

// Create records a submission for the authenticated user. Out-of-radius
// submissions are stored too, so both outcomes answer 201.
func (h *CheckInHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, h.log, apperror.New(apperror.KindUnauthorized, "authentication required"))
		return
	}

	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	out, err := h.recorder.Record(r.Context(), attendance.Submission{
		UserID:     user.ID,
		LocationID: req.LocationID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Direction:  req.Direction,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	msg := "Check-in successful"
	if out.Event.Direction == models.DirectionOut {
		msg = "Check-out successful"
	}
	if !out.Success {
		msg = "Location verification failed. You are not within the allowed radius."
	}
	writeJSON(w, http.StatusCreated, checkInResponse{Success: out.Success, Message: msg, Data: out.Event})
}

func (h *CheckInHandler) Recent(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, h.log, apperror.New(apperror.KindUnauthorized, "authentication required"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, h.log, apperror.New(apperror.KindValidation, "invalid limit"))
			return
		}
		limit = n
	}

	events, err := h.recorder.Recent(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if events == nil {
		events = []models.CheckIn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": events})
}
