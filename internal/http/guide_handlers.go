package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/location"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/repository"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/service"
)

// GuideAPI 导诊核心能力（由 service.Guide 实现）
type GuideAPI interface {
	Journey(ctx context.Context, patientID string) (*service.JourneyView, error)
	LatestRoute(ctx context.Context, patientID string) (*models.RouteRecord, error)
	Location(ctx context.Context, patientID string) (*service.LocationView, error)
	HandleScan(ctx context.Context, patientID string, raw models.RawScanEvent) (models.LocationSample, error)
	SetExploreMode(ctx context.Context, patientID string, on bool) error
	RouteTo(ctx context.Context, patientID, facilityID string) error
}

// GuideHandler 患者导诊 HTTP 接口
type GuideHandler struct {
	guide  GuideAPI
	logger *zap.Logger
}

func NewGuideHandler(guide GuideAPI, logger *zap.Logger) *GuideHandler {
	return &GuideHandler{guide: guide, logger: logger}
}

// GET /guide/api/v1/patients/{id}/journey
func (h *GuideHandler) GetJourney(w http.ResponseWriter, r *http.Request, patientID string) {
	view, err := h.guide.Journey(r.Context(), patientID)
	if err != nil {
		h.writeError(w, "journey", patientID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

// GET /guide/api/v1/patients/{id}/route
func (h *GuideHandler) GetRoute(w http.ResponseWriter, r *http.Request, patientID string) {
	rec, err := h.guide.LatestRoute(r.Context(), patientID)
	if err != nil {
		h.writeError(w, "route", patientID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// GET /guide/api/v1/patients/{id}/location
func (h *GuideHandler) GetLocation(w http.ResponseWriter, r *http.Request, patientID string) {
	view, err := h.guide.Location(r.Context(), patientID)
	if err != nil {
		h.writeError(w, "location", patientID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

// POST /guide/api/v1/patients/{id}/scan
// body: RawScanEvent
func (h *GuideHandler) PostScan(w http.ResponseWriter, r *http.Request, patientID string) {
	var raw models.RawScanEvent
	if err := readBodyJSON(r, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body: "+err.Error()))
		return
	}
	sample, err := h.guide.HandleScan(r.Context(), patientID, raw)
	if err != nil {
		h.writeError(w, "scan", patientID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sample))
}

// POST /guide/api/v1/patients/{id}/explore
// body: {"enabled": true}
func (h *GuideHandler) PostExplore(w http.ResponseWriter, r *http.Request, patientID string) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := readBodyJSON(r, &body); err != nil || body.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, Fail("enabled is required"))
		return
	}
	if err := h.guide.SetExploreMode(r.Context(), patientID, *body.Enabled); err != nil {
		h.writeError(w, "explore", patientID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"explore_mode": *body.Enabled}))
}

// POST /guide/api/v1/patients/{id}/route-to
// body: {"facility_id": "payment_desk"}
func (h *GuideHandler) PostRouteTo(w http.ResponseWriter, r *http.Request, patientID string) {
	var body struct {
		FacilityID string `json:"facility_id"`
	}
	if err := readBodyJSON(r, &body); err != nil || body.FacilityID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("facility_id is required"))
		return
	}
	if err := h.guide.RouteTo(r.Context(), patientID, body.FacilityID); err != nil {
		h.writeError(w, "route-to", patientID, err)
		return
	}
	writeJSON(w, http.StatusAccepted, Ok(map[string]string{"facility_id": body.FacilityID}))
}

func (h *GuideHandler) writeError(w http.ResponseWriter, op, patientID string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Guide request failed",
			zap.String("op", op),
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
	}
	writeJSON(w, status, Fail(err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, location.ErrInvalidScan):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrPatientNotFound),
		errors.Is(err, service.ErrUnknownFacility),
		errors.Is(err, service.ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
