package appointments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the appointment does not exist.
	ErrNotFound = errors.New("appointments: not found")
	// ErrPastDate indicates the requested day is already over.
	ErrPastDate = errors.New("appointments: cannot book a past date")
	// ErrDuplicate indicates the patient already booked this doctor that day.
	ErrDuplicate = errors.New("appointments: already booked with this doctor on that date")
	// ErrUnknownDoctor indicates the doctor id does not refer to a doctor.
	ErrUnknownDoctor = errors.New("appointments: unknown doctor")
)

// Store persists appointments to PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates an appointment store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db, now: time.Now}
}

const appointmentColumns = `id, patient_id, doctor_id, scheduled_at, reason, status, response_message, created_at`

// Book creates a pending appointment. The day must not be in the past
// (booking later today is allowed), the doctor must exist, and a patient
// gets at most one appointment per doctor per day.
func (s *Store) Book(ctx context.Context, a *Appointment) error {
	if a == nil {
		return errors.New("appointments: appointment cannot be nil")
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if a.ScheduledAt.UTC().Before(today) {
		return ErrPastDate
	}

	var isDoctor bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = 'doctor')`,
		a.DoctorID).Scan(&isDoctor); err != nil {
		return fmt.Errorf("appointments: doctor check failed: %w", err)
	}
	if !isDoctor {
		return ErrUnknownDoctor
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND doctor_id = $2
			  AND scheduled_at::date = $3::date AND status <> 'declined'
		)`, a.PatientID, a.DoctorID, a.ScheduledAt).Scan(&exists); err != nil {
		return fmt.Errorf("appointments: duplicate check failed: %w", err)
	}
	if exists {
		return ErrDuplicate
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = StatusPending
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, scheduled_at, reason, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, a.ID, a.PatientID, a.DoctorID, a.ScheduledAt, a.Reason, string(a.Status), a.CreatedAt); err != nil {
		return fmt.Errorf("appointments: failed to book: %w", err)
	}
	return nil
}

// ListForDoctor returns a doctor's appointments, soonest first.
func (s *Store) ListForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return s.list(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE doctor_id = $1 ORDER BY scheduled_at ASC`,
		doctorID)
}

// HistoryForPatient returns a patient's appointments, most recent first.
func (s *Store) HistoryForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.list(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE patient_id = $1 ORDER BY scheduled_at DESC`,
		patientID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: query failed: %w", err)
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		var (
			a      Appointment
			status string
		)
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.Reason, &status, &a.ResponseMessage, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		a.Status = Status(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: read failed: %w", err)
	}
	return out, nil
}

// Respond records the doctor's decision and optional message on a pending
// appointment. Only the appointment's doctor can respond.
func (s *Store) Respond(ctx context.Context, appointmentID, doctorID string, status Status, responseMessage string) error {
	if status != StatusAccepted && status != StatusDeclined {
		return fmt.Errorf("appointments: invalid response status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET status = $3, response_message = $4
		 WHERE id = $1 AND doctor_id = $2 AND status = 'pending'`,
		appointmentID, doctorID, string(status), responseMessage)
	if err != nil {
		return fmt.Errorf("appointments: failed to respond: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
