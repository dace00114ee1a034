package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("users: not found")

// Store persists user accounts to PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

const userColumns = `id, role, first_name, last_name, email, password_hash, image_url,
	date_of_birth, blood_type, allergies, vitals,
	specialization, license_number, years_of_experience, hospital, created_at`

// Create inserts a new user, generating its ID.
func (s *Store) Create(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("users: user cannot be nil")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	vitalsJSON, err := marshalVitals(u.Vitals)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, role, first_name, last_name, email, password_hash, image_url,
			date_of_birth, blood_type, allergies, vitals,
			specialization, license_number, years_of_experience, hospital, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, u.ID, string(u.Role), u.FirstName, u.LastName, strings.ToLower(u.Email), u.PasswordHash, u.ImageURL,
		u.DateOfBirth, u.BloodType, u.Allergies, vitalsJSON,
		u.Specialization, u.LicenseNumber, u.YearsOfExperience, u.Hospital, u.CreatedAt); err != nil {
		return fmt.Errorf("users: failed to create user: %w", err)
	}
	return nil
}

// GetByEmail loads a user by email, or ErrNotFound.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

// GetByID loads a user by ID, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ListDoctors returns every doctor account.
func (s *Store) ListDoctors(ctx context.Context) ([]User, error) {
	return s.listDoctors(ctx, `SELECT `+userColumns+` FROM users WHERE role = 'doctor' ORDER BY last_name, first_name`)
}

// ListDoctorsBySpecialization returns doctors with the given specialization.
func (s *Store) ListDoctorsBySpecialization(ctx context.Context, specialization string) ([]User, error) {
	return s.listDoctors(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = 'doctor' AND specialization = $1 ORDER BY last_name, first_name`,
		specialization)
}

func (s *Store) listDoctors(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("users: failed to list doctors: %w", err)
	}
	defer rows.Close()

	doctors := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: failed to read doctors: %w", err)
	}
	return doctors, nil
}

// UpdateVitals replaces a patient's vitals.
func (s *Store) UpdateVitals(ctx context.Context, patientID string, vitals Vitals) error {
	vitalsJSON, err := marshalVitals(&vitals)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET vitals = $2 WHERE id = $1 AND role = 'patient'`, patientID, vitalsJSON)
	if err != nil {
		return fmt.Errorf("users: failed to update vitals: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("users: failed to update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u          User
		role       string
		vitalsJSON []byte
	)
	if err := row.Scan(&u.ID, &role, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.ImageURL,
		&u.DateOfBirth, &u.BloodType, &u.Allergies, &vitalsJSON,
		&u.Specialization, &u.LicenseNumber, &u.YearsOfExperience, &u.Hospital, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: failed to scan user: %w", err)
	}
	u.Role = Role(role)
	if len(vitalsJSON) > 0 {
		var v Vitals
		if err := json.Unmarshal(vitalsJSON, &v); err != nil {
			return nil, fmt.Errorf("users: failed to decode vitals: %w", err)
		}
		u.Vitals = &v
	}
	return &u, nil
}

// marshalVitals returns an untyped nil when there are no vitals so the
// driver writes SQL NULL instead of an empty byte slice.
func marshalVitals(v *Vitals) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("users: failed to encode vitals: %w", err)
	}
	return data, nil
}
