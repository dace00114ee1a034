package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rolacode/telehealth-platform/internal/appointments"
	"github.com/rolacode/telehealth-platform/internal/chat"
	"github.com/rolacode/telehealth-platform/internal/doctorsearch"
	httpmiddleware "github.com/rolacode/telehealth-platform/internal/http/middleware"
	"github.com/rolacode/telehealth-platform/internal/passwordreset"
	"github.com/rolacode/telehealth-platform/internal/users"
	"github.com/rolacode/telehealth-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	UsersHandler        *users.Handler
	SearchHandler       *doctorsearch.Handler
	AppointmentsHandler *appointments.Handler
	ChatHandler         *chat.Handler
	ResetHandler        *passwordreset.Handler
	MetricsHandler      http.Handler
	JWTSecret           string
	CORSAllowedOrigins  []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public account and reset endpoints.
	r.Group(func(public chi.Router) {
		if cfg.UsersHandler != nil {
			public.Post("/api/user/register", cfg.UsersHandler.HandleRegister)
			public.Post("/api/user/login", cfg.UsersHandler.HandleLogin)
		}
		if cfg.ResetHandler != nil {
			public.Post("/api/resetPassword/forgot", cfg.ResetHandler.HandleForgot)
			public.Post("/api/resetPassword/reset/{token}", cfg.ResetHandler.HandleReset)
		}
	})

	// Chat endpoints. The websocket identifies the caller with a join
	// event, so the socket itself is unauthenticated.
	if cfg.ChatHandler != nil {
		r.Get("/api/chat/ws", cfg.ChatHandler.HandleWebSocket)
		r.Get("/api/chat/history/{userA}/{userB}", cfg.ChatHandler.HandleHistory)
	}

	// Authenticated endpoints.
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.UserAuth(cfg.JWTSecret))

		if cfg.UsersHandler != nil {
			authed.Get("/api/user/doctor", cfg.UsersHandler.HandleListDoctors)
			authed.With(httpmiddleware.RequireRole("doctor")).
				Patch("/api/patients/{patientID}/vitals", cfg.UsersHandler.HandleUpdateVitals)
		}
		if cfg.SearchHandler != nil {
			authed.Get("/api/search-doctors", cfg.SearchHandler.HandleSearch)
		}
		if cfg.AppointmentsHandler != nil {
			authed.Route("/api/appointments", func(r chi.Router) {
				r.With(httpmiddleware.RequireRole("patient")).Post("/", cfg.AppointmentsHandler.HandleBook)
				r.With(httpmiddleware.RequireRole("patient")).Get("/history", cfg.AppointmentsHandler.HandleHistory)
				r.With(httpmiddleware.RequireRole("doctor")).Get("/doctor", cfg.AppointmentsHandler.HandleListForDoctor)
				r.With(httpmiddleware.RequireRole("doctor")).Patch("/{appointmentID}/respond", cfg.AppointmentsHandler.HandleRespond)
			})
		}
	})

	return r
}
