package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"workforce/apperror"
	"workforce/middleware"
	"workforce/models"
	"workforce/payroll"
	"workforce/report"
)

type PayrollService interface {
	Compute(ctx context.Context, req payroll.Request) (payroll.Report, error)
	Earnings(ctx context.Context, userID uint, now time.Time, policy payroll.Policy) (payroll.Earnings, error)
	Persist(ctx context.Context, r payroll.Report) (uuid.UUID, []models.PayrollRecord, error)
	Records(ctx context.Context, userID uint) ([]models.PayrollRecord, error)
}

type PayrollHandler struct {
	payroll PayrollService
	policy  payroll.Policy
	log     *zap.Logger
	now     func() time.Time
}

func NewPayrollHandler(svc PayrollService, policy payroll.Policy, log *zap.Logger) *PayrollHandler {
	return &PayrollHandler{payroll: svc, policy: policy, log: log, now: time.Now}
}

// request builds the aggregation request from start_date, end_date and the
// optional user_id query parameters.
func (h *PayrollHandler) request(r *http.Request) (payroll.Request, error) {
	q := r.URL.Query()
	period, err := payroll.ParsePeriod(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		return payroll.Request{}, err
	}
	userID, err := parseUintParam(r, "user_id")
	if err != nil {
		return payroll.Request{}, err
	}

	req := payroll.Request{Period: period, Policy: h.policy}
	if userID != 0 {
		req.UserIDs = []uint{userID}
	}
	return req, nil
}

func (h *PayrollHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	rep, err := h.payroll.Compute(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rep})
}

func (h *PayrollHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, h.log, apperror.Wrap(err, apperror.KindValidation, "format must be xlsx or csv"))
		return
	}
	req, err := h.request(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	rep, err := h.payroll.Compute(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", format.Filename(rep.Period)))
	if err := report.Write(w, format, rep); err != nil {
		h.log.Error("failed to write payroll export", zap.String("format", string(format)), zap.Error(err))
	}
}

type recordsResponse struct {
	Success bool                   `json:"success"`
	RunID   uuid.UUID              `json:"run_id"`
	Data    []models.PayrollRecord `json:"data"`
}

// CreateRecords computes payroll for the requested window and stores it as
// one run.
func (h *PayrollHandler) CreateRecords(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	rep, err := h.payroll.Compute(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	runID, records, err := h.payroll.Persist(r.Context(), rep)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordsResponse{Success: true, RunID: runID, Data: records})
}

func (h *PayrollHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUintParam(r, "user_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	records, err := h.payroll.Records(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if records == nil {
		records = []models.PayrollRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": records})
}

// Earnings is the dashboard summary for the caller, or for user_id when the
// caller is an admin.
func (h *PayrollHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, h.log, apperror.New(apperror.KindUnauthorized, "authentication required"))
		return
	}

	target, err := parseUintParam(r, "user_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if target == 0 {
		target = user.ID
	}
	if !user.CanViewPayrollFor(target) {
		writeError(w, h.log, apperror.New(apperror.KindForbidden, "cannot view earnings of another user"))
		return
	}

	earnings, err := h.payroll.Earnings(r.Context(), target, h.now().UTC(), h.policy)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": earnings})
}
