package users

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rolacode/telehealth-platform/internal/http/middleware"
	"github.com/rolacode/telehealth-platform/pkg/logging"
)

const bcryptCost = 10

// UserStore is what the handler needs from persistence.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	ListDoctors(ctx context.Context) ([]User, error)
	UpdateVitals(ctx context.Context, patientID string, vitals Vitals) error
}

// ImageUploader stores a profile image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// Handler serves registration, login, doctor listing and vitals updates.
type Handler struct {
	store     UserStore
	uploader  ImageUploader
	jwtSecret string
	tokenTTL  time.Duration
	logger    *logging.Logger
}

// NewHandler creates a users handler.
func NewHandler(store UserStore, uploader ImageUploader, jwtSecret string, tokenTTL time.Duration, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &Handler{
		store:     store,
		uploader:  uploader,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type registerRequest struct {
	Role            string  `json:"role"`
	UserType        string  `json:"user_type"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	Image           string  `json:"image"`
	DateOfBirth     string  `json:"date_of_birth"`
	BloodType       string  `json:"blood_type"`
	Allergies       string  `json:"allergies"`
	Vitals          *Vitals `json:"vitals"`

	Specialization    string `json:"specialization"`
	LicenseNumber     string `json:"license_number"`
	YearsOfExperience int    `json:"years_of_experience"`
	Hospital          string `json:"hospital"`
}

// HandleRegister creates a doctor or patient account.
// POST /api/user/register (JSON, or multipart form with an "image" file)
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, imageData, imageType, err := decodeRegisterRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := Role(strings.ToLower(firstNonEmpty(req.Role, req.UserType)))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" || role == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid user role")
		return
	}

	switch role {
	case RoleDoctor:
		if req.Specialization == "" || req.LicenseNumber == "" || req.YearsOfExperience == 0 || req.Hospital == "" {
			writeError(w, http.StatusBadRequest, "all doctor fields are required")
			return
		}
	case RolePatient:
		if req.DateOfBirth == "" || req.BloodType == "" {
			writeError(w, http.StatusBadRequest, "all patient fields are required")
			return
		}
	}

	if existing, err := h.store.GetByEmail(r.Context(), req.Email); err == nil && existing != nil {
		writeError(w, http.StatusConflict, "email already in use")
		return
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.Error("users: email lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error during registration")
		return
	}

	imageURL := req.Image
	if len(imageData) > 0 && h.uploader != nil {
		url, err := h.uploader.Upload(r.Context(), imageData, imageType)
		if err != nil {
			h.logger.Error("users: image upload failed", "error", err)
			writeError(w, http.StatusInternalServerError, "image upload failed")
			return
		}
		imageURL = url
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error during registration")
		return
	}

	user := &User{
		Role:         role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		ImageURL:     imageURL,
	}
	switch role {
	case RolePatient:
		user.DateOfBirth = req.DateOfBirth
		user.BloodType = req.BloodType
		user.Allergies = req.Allergies
		user.Vitals = req.Vitals
	case RoleDoctor:
		user.Specialization = req.Specialization
		user.LicenseNumber = req.LicenseNumber
		user.YearsOfExperience = req.YearsOfExperience
		user.Hospital = req.Hospital
	}

	if err := h.store.Create(r.Context(), user); err != nil {
		h.logger.Error("users: create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error during registration")
		return
	}

	token, err := IssueToken(h.jwtSecret, user, h.tokenTTL)
	if err != nil {
		h.logger.Error("users: token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error during registration")
		return
	}

	h.logger.Info("users: registered", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"token":   token,
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates an existing account.
// POST /api/user/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		h.logger.Error("users: login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error during login")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	token, err := IssueToken(h.jwtSecret, user, h.tokenTTL)
	if err != nil {
		h.logger.Error("users: token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error during login")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// HandleListDoctors returns every doctor account.
// GET /api/user/doctor
func (h *Handler) HandleListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.store.ListDoctors(r.Context())
	if err != nil {
		h.logger.Error("users: doctor listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error while fetching doctors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

type vitalsRequest struct {
	BloodPressure    string  `json:"blood_pressure"`
	HeartRate        int     `json:"heart_rate"`
	Temperature      float64 `json:"temperature"`
	OxygenSaturation int     `json:"oxygen_saturation"`
}

// HandleUpdateVitals lets a doctor record a patient's vitals.
// PATCH /api/patients/{patientID}/vitals
func (h *Handler) HandleUpdateVitals(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	doctor, err := h.store.GetByID(r.Context(), doctorID)
	if err != nil || doctor.Role != RoleDoctor {
		writeError(w, http.StatusForbidden, "only doctors can update vitals")
		return
	}

	patientID := chi.URLParam(r, "patientID")
	var req vitalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vitals := Vitals{
		BloodPressure:    req.BloodPressure,
		HeartRate:        req.HeartRate,
		Temperature:      req.Temperature,
		OxygenSaturation: req.OxygenSaturation,
	}
	if err := h.store.UpdateVitals(r.Context(), patientID, vitals); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		h.logger.Error("users: vitals update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error while updating vitals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "vitals updated successfully",
		"vitals":  vitals,
	})
}

func decodeRegisterRequest(r *http.Request) (registerRequest, []byte, string, error) {
	var req registerRequest
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, "", err
		}
		return req, nil, "", nil
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return req, nil, "", err
	}
	years, _ := strconv.Atoi(r.FormValue("years_of_experience"))
	req = registerRequest{
		Role:              r.FormValue("role"),
		UserType:          r.FormValue("user_type"),
		FirstName:         r.FormValue("first_name"),
		LastName:          r.FormValue("last_name"),
		Email:             r.FormValue("email"),
		Password:          r.FormValue("password"),
		ConfirmPassword:   r.FormValue("confirm_password"),
		Image:             r.FormValue("image"),
		DateOfBirth:       r.FormValue("date_of_birth"),
		BloodType:         r.FormValue("blood_type"),
		Allergies:         r.FormValue("allergies"),
		Specialization:    r.FormValue("specialization"),
		LicenseNumber:     r.FormValue("license_number"),
		YearsOfExperience: years,
		Hospital:          r.FormValue("hospital"),
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		// No file attached; a URL in the form body is still honored.
		return req, nil, "", nil
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return req, nil, "", err
	}
	return req, data, header.Header.Get("Content-Type"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
