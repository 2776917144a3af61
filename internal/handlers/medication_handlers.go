package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"adherence-tracker/internal/middleware"
	"adherence-tracker/internal/models"
	"adherence-tracker/internal/services"
)

// AuditEntryResponse is one audit trail entry as returned to clients
type AuditEntryResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// loadMedication fetches the {id} medication and checks that the caller may
// see it. It writes the error reply itself and returns nil on failure.
func loadMedication(w http.ResponseWriter, r *http.Request, svc *services.AdherenceService, logger *zap.Logger) *models.Medication {
	m, err := svc.GetMedication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, logger, err)
		return nil
	}
	if !middleware.GetUserContext(r).CanAccessPatient(m.PatientID) {
		respondError(w, http.StatusForbidden, "Access denied")
		return nil
	}
	return m
}

// patientParam returns {patientID} if the caller may read that patient
func patientParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	patientID := chi.URLParam(r, "patientID")
	if !middleware.GetUserContext(r).CanAccessPatient(patientID) {
		respondError(w, http.StatusForbidden, "Access denied")
		return "", false
	}
	return patientID, true
}

// HandleListMedications returns a patient's medications
func HandleListMedications(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientParam(w, r)
		if !ok {
			return
		}

		meds, err := svc.ListMedications(r.Context(), patientID)
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		if meds == nil {
			meds = []*models.Medication{}
		}
		respondJSON(w, http.StatusOK, meds)
	}
}

// HandleCreateMedication adds a medication to a patient's regimen
func HandleCreateMedication(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := chi.URLParam(r, "patientID")
		if !middleware.GetUserContext(r).CanManageMedications(patientID) {
			respondError(w, http.StatusForbidden, "Access denied")
			return
		}

		var m models.Medication
		if err := decodeJSON(w, r, &m); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		m.ID = ""
		m.PatientID = patientID
		m.CreatedBy = ""

		if err := svc.CreateMedication(r.Context(), &m, actorFrom(r)); err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, m)
	}
}

// HandleGetMedication returns a single medication
func HandleGetMedication(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := loadMedication(w, r, svc, logger)
		if m == nil {
			return
		}
		respondJSON(w, http.StatusOK, m)
	}
}

// HandleUpdateMedication applies a partial update to a medication
func HandleUpdateMedication(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := loadMedication(w, r, svc, logger)
		if m == nil {
			return
		}
		if !middleware.GetUserContext(r).CanManageMedications(m.PatientID) {
			respondError(w, http.StatusForbidden, "Access denied")
			return
		}

		var patch models.MedicationPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		updated, err := svc.UpdateMedication(r.Context(), m.ID, &patch, actorFrom(r))
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

// HandleDeleteMedication removes a medication and its dose history
func HandleDeleteMedication(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := loadMedication(w, r, svc, logger)
		if m == nil {
			return
		}
		if !middleware.GetUserContext(r).CanManageMedications(m.PatientID) {
			respondError(w, http.StatusForbidden, "Access denied")
			return
		}

		if err := svc.DeleteMedication(r.Context(), m.ID, actorFrom(r)); err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleMedicationAudit returns the audit trail of a medication and its doses
func HandleMedicationAudit(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := loadMedication(w, r, svc, logger)
		if m == nil {
			return
		}

		limit, err := intParam(r, "limit")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		offset, err := intParam(r, "offset")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		logs, err := svc.AuditTrail(r.Context(), m.ID, limit, offset)
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}

		entries := make([]AuditEntryResponse, 0, len(logs))
		for _, l := range logs {
			entries = append(entries, AuditEntryResponse{
				ID:        l.ID,
				UserID:    l.UserID.String,
				Action:    l.Action,
				Details:   l.Details.String,
				IPAddress: l.IPAddress.String,
				Timestamp: l.Timestamp,
			})
		}
		respondJSON(w, http.StatusOK, entries)
	}
}
