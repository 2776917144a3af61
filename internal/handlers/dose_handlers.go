package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"adherence-tracker/internal/middleware"
	"adherence-tracker/internal/services"
)

// GenerateDosesResponse reports how many records a generate call wrote
type GenerateDosesResponse struct {
	Generated int `json:"generated"`
}

// HandleDailyDoses returns a patient's reconciled doses for ?date= (default today)
func HandleDailyDoses(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientParam(w, r)
		if !ok {
			return
		}
		day, err := dateParam(r, "date")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		doses, err := svc.DailyDoses(r.Context(), patientID, day)
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, doses)
	}
}

// HandleRangeDoses returns one medication's reconciled doses for ?start=&end=
func HandleRangeDoses(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := loadMedication(w, r, svc, logger)
		if m == nil {
			return
		}
		from, err := dateParam(r, "start")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		to, err := dateParam(r, "end")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		doses, err := svc.RangeDoses(r.Context(), m.ID, from, to)
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, doses)
	}
}

// HandleGenerateDoses stores unresolved records for every due slot in ?start=&end=
func HandleGenerateDoses(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := loadMedication(w, r, svc, logger)
		if m == nil {
			return
		}
		if !middleware.GetUserContext(r).CanRecordDoses(m.PatientID) {
			respondError(w, http.StatusForbidden, "Access denied")
			return
		}
		from, err := dateParam(r, "start")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		to, err := dateParam(r, "end")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		n, err := svc.Generate(r.Context(), m.ID, from, to, actorFrom(r))
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, GenerateDosesResponse{Generated: n})
	}
}

// HandleSetDoseStatus records a dose as taken, missed or (null) unresolved.
// The body must carry the taken key.
func HandleSetDoseStatus(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := loadMedication(w, r, svc, logger)
		if m == nil {
			return
		}
		if !middleware.GetUserContext(r).CanRecordDoses(m.PatientID) {
			respondError(w, http.StatusForbidden, "Access denied")
			return
		}

		var body map[string]json.RawMessage
		if err := decodeJSON(w, r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		raw, ok := body["taken"]
		if !ok {
			respondError(w, http.StatusBadRequest, "taken is required")
			return
		}
		var taken *bool
		if err := json.Unmarshal(raw, &taken); err != nil {
			respondError(w, http.StatusBadRequest, "taken must be true, false or null")
			return
		}

		dose, err := svc.SetDoseStatus(r.Context(), m.ID, chi.URLParam(r, "doseID"), taken, actorFrom(r))
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, dose)
	}
}
