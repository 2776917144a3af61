package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"adherence-tracker/internal/schedule"
	"adherence-tracker/internal/services"
)

func complianceQuery(r *http.Request) (services.ComplianceQuery, error) {
	var q services.ComplianceQuery
	start, err := dateParam(r, "startDate")
	if err != nil {
		return q, err
	}
	end, err := dateParam(r, "endDate")
	if err != nil {
		return q, err
	}
	reconciled, err := boolParam(r, "reconciled")
	if err != nil {
		return q, err
	}
	q.Window = schedule.Window{Start: start, End: end}
	q.Reconciled = reconciled
	q.MedicationID = r.URL.Query().Get("medicationId")
	return q, nil
}

// HandlePatientCompliance summarizes a patient's adherence over a window
func HandlePatientCompliance(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientParam(w, r)
		if !ok {
			return
		}
		q, err := complianceQuery(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		report, err := svc.PatientCompliance(r.Context(), patientID, q)
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, report)
	}
}

// HandleMedicationCompliance summarizes one medication's adherence
func HandleMedicationCompliance(svc *services.AdherenceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := loadMedication(w, r, svc, logger)
		if m == nil {
			return
		}
		q, err := complianceQuery(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.MedicationID = ""

		mc, err := svc.MedicationCompliance(r.Context(), m.ID, q)
		if err != nil {
			respondServiceError(w, r, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, mc)
	}
}
