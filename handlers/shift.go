package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"workforce/apperror"
	"workforce/middleware"
	"workforce/models"
	"workforce/payroll"
	"workforce/schedule"
)

type ShiftService interface {
	List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, error)
	Create(ctx context.Context, in schedule.NewShift, createdBy uint) (models.Shift, error)
	Update(ctx context.Context, id uint, upd schedule.ShiftUpdate) (models.Shift, error)
	Delete(ctx context.Context, id uint) error
	Month(ctx context.Context, userID uint, year, month int) ([]schedule.Day, error)
}

type ShiftHandler struct {
	shifts ShiftService
	log    *zap.Logger
}

func NewShiftHandler(shifts ShiftService, log *zap.Logger) *ShiftHandler {
	return &ShiftHandler{shifts: shifts, log: log}
}

// target resolves whose shifts the caller asked for. Employees only see their
// own; admins see everyone unless user_id narrows it.
func (h *ShiftHandler) target(r *http.Request, user *models.User) (uint, error) {
	userID, err := parseUintParam(r, "user_id")
	if err != nil {
		return 0, err
	}
	if userID == 0 && !user.IsAdmin() {
		userID = user.ID
	}
	if userID != 0 && !user.CanViewScheduleFor(userID) {
		return 0, apperror.New(apperror.KindForbidden, "cannot view shifts of another user")
	}
	return userID, nil
}

func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, h.log, apperror.New(apperror.KindUnauthorized, "authentication required"))
		return
	}

	userID, err := h.target(r, user)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	q := r.URL.Query()
	period, err := payroll.ParsePeriod(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	shifts, err := h.shifts.List(r.Context(), models.ShiftFilter{UserID: userID, Start: period.Start, End: period.End})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if shifts == nil {
		shifts = []models.Shift{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": shifts})
}

func (h *ShiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, h.log, apperror.New(apperror.KindUnauthorized, "authentication required"))
		return
	}

	var in schedule.NewShift
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}
	shift, err := h.shifts.Create(r.Context(), in, user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Shift created successfully", "data": shift})
}

func (h *ShiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var upd schedule.ShiftUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, h.log, err)
		return
	}
	shift, err := h.shifts.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Shift updated successfully", "data": shift})
}

func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.shifts.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Shift deleted successfully"})
}

// Schedule is the day-by-day view of one month for the caller, or for
// user_id when the caller is an admin.
func (h *ShiftHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, h.log, apperror.New(apperror.KindUnauthorized, "authentication required"))
		return
	}

	year, yerr := strconv.Atoi(chi.URLParam(r, "year"))
	month, merr := strconv.Atoi(chi.URLParam(r, "month"))
	if yerr != nil || merr != nil {
		writeError(w, h.log, apperror.New(apperror.KindValidation, "invalid year or month"))
		return
	}
	userID, err := h.target(r, user)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if userID == 0 {
		userID = user.ID
	}

	days, err := h.shifts.Month(r.Context(), userID, year, month)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": days})
}
