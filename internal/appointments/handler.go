package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rolacode/telehealth-platform/internal/http/middleware"
	"github.com/rolacode/telehealth-platform/pkg/logging"
)

// AppointmentStore is what the handler needs from persistence.
type AppointmentStore interface {
	Book(ctx context.Context, a *Appointment) error
	ListForDoctor(ctx context.Context, doctorID string) ([]Appointment, error)
	HistoryForPatient(ctx context.Context, patientID string) ([]Appointment, error)
	Respond(ctx context.Context, appointmentID, doctorID string, status Status, responseMessage string) error
}

// Handler serves appointment booking and management.
type Handler struct {
	store  AppointmentStore
	logger *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(store AppointmentStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type bookRequest struct {
	DoctorID    string    `json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason"`
}

// HandleBook books a new appointment for the authenticated patient.
// POST /api/appointments
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DoctorID == "" || req.ScheduledAt.IsZero() {
		writeError(w, http.StatusBadRequest, "doctor_id and scheduled_at are required")
		return
	}

	appt := &Appointment{
		PatientID:   patientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: req.ScheduledAt.UTC(),
		Reason:      req.Reason,
	}
	if err := h.store.Book(r.Context(), appt); err != nil {
		switch {
		case errors.Is(err, ErrPastDate):
			writeError(w, http.StatusBadRequest, "appointment date cannot be in the past")
		case errors.Is(err, ErrUnknownDoctor):
			writeError(w, http.StatusBadRequest, "doctor not found")
		case errors.Is(err, ErrDuplicate):
			writeError(w, http.StatusConflict, "you already have an appointment with this doctor on that date")
		default:
			h.logger.Error("appointments: booking failed", "error", err)
			writeError(w, http.StatusInternalServerError, "server error while booking appointment")
		}
		return
	}

	h.logger.Info("appointments: booked", "appointment_id", appt.ID, "doctor_id", appt.DoctorID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "appointment booked successfully",
		"appointment": appt,
	})
}

// HandleListForDoctor returns the authenticated doctor's appointments.
// GET /api/appointments/doctor
func (h *Handler) HandleListForDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appts, err := h.store.ListForDoctor(r.Context(), doctorID)
	if err != nil {
		h.logger.Error("appointments: doctor listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error while fetching appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// HandleHistory returns the authenticated patient's appointment history.
// GET /api/appointments/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appts, err := h.store.HistoryForPatient(r.Context(), patientID)
	if err != nil {
		h.logger.Error("appointments: history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error while fetching history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

type respondRequest struct {
	Status          string `json:"status"`
	ResponseMessage string `json:"response_message"`
}

// HandleRespond records the authenticated doctor's accept/decline decision.
// PATCH /api/appointments/{appointmentID}/respond
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appointmentID := chi.URLParam(r, "appointmentID")
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := Status(req.Status)
	if status != StatusAccepted && status != StatusDeclined {
		writeError(w, http.StatusBadRequest, "status must be accepted or declined")
		return
	}

	if err := h.store.Respond(r.Context(), appointmentID, doctorID, status, req.ResponseMessage); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "pending appointment not found")
			return
		}
		h.logger.Error("appointments: respond failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error while responding to appointment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "appointment " + string(status)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
