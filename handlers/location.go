package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"workforce/apperror"
	"workforce/models"
)

type LocationLister interface {
	Locations(ctx context.Context) ([]models.Location, error)
}

type LocationHandler struct {
	locations LocationLister
	log       *zap.Logger
}

func NewLocationHandler(locations LocationLister, log *zap.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, log: log}
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.Locations(r.Context())
	if err != nil {
		writeError(w, h.log, apperror.Wrap(err, apperror.KindPersistence, "failed to load locations"))
		return
	}
	if locations == nil {
		locations = []models.Location{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": locations})
}
