package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"adherence-tracker/internal/middleware"
	"adherence-tracker/internal/models"
	"adherence-tracker/internal/repository"
	"adherence-tracker/internal/schedule"
	"adherence-tracker/internal/services"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, schedule.ErrMalformedDoseID),
		errors.Is(err, schedule.ErrInvalidScheduleKind),
		errors.Is(err, schedule.ErrInvalidTimeFormat),
		errors.Is(err, services.ErrInvalidRange),
		errors.Is(err, services.ErrRangeTooLarge),
		errors.Is(err, services.ErrEmptyPatch):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrDoseOutOfRange),
		errors.Is(err, schedule.ErrNoSlotsDefined):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status. Server errors are
// logged and their detail withheld from the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
		respondError(w, status, "internal server error")
		return
	}
	if status == http.StatusNotFound {
		respondError(w, status, "not found")
		return
	}
	respondError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// dateParam reads an optional YYYY-MM-DD query parameter
func dateParam(r *http.Request, name string) (schedule.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return schedule.Date{}, nil
	}
	d, err := schedule.ParseDate(v)
	if err != nil {
		return schedule.Date{}, errors.New("invalid " + name + ", use YYYY-MM-DD")
	}
	return d, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New("invalid " + name + ", use true or false")
	}
	return b, nil
}

func intParam(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func actorFrom(r *http.Request) services.Actor {
	return services.Actor{
		UserID:    middleware.GetUserID(r.Context()),
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	}
}
