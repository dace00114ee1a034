package doctorsearch

import (
	"encoding/json"
	"net/http"

	"github.com/rolacode/telehealth-platform/pkg/logging"
)

// Handler serves symptom-based doctor search.
type Handler struct {
	doctors DoctorLister
	logger  *logging.Logger
}

// NewHandler creates a search handler.
func NewHandler(doctors DoctorLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{doctors: doctors, logger: logger}
}

// HandleSearch resolves a symptom to a specialization and returns the
// doctors who practice it.
// GET /api/search-doctors?symptom=fever
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	symptom := r.URL.Query().Get("symptom")
	if symptom == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "symptom query parameter is required"})
		return
	}

	specialization, ok := SpecializationFor(symptom)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"message":        "no specialization found for symptom",
			"known_symptoms": Symptoms(),
		})
		return
	}

	doctors, err := h.doctors.ListDoctorsBySpecialization(r.Context(), specialization)
	if err != nil {
		h.logger.Error("doctorsearch: listing failed", "specialization", specialization, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "server error during doctor search"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"specialization": specialization,
		"doctors":        doctors,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
