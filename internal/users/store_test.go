package users

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "role", "first_name", "last_name", "email", "password_hash", "image_url",
		"date_of_birth", "blood_type", "allergies", "vitals",
		"specialization", "license_number", "years_of_experience", "hospital", "created_at",
	})
}

func TestStoreCreateGeneratesID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "patient", "Ada", "Obi", "ada@example.com", "hash", "",
			"1990-04-02", "O+", "", nil,
			"", "", 0, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &User{
		Role:         RolePatient,
		FirstName:    "Ada",
		LastName:     "Obi",
		Email:        "Ada@Example.com",
		PasswordHash: "hash",
		DateOfBirth:  "1990-04-02",
		BloodType:    "O+",
	}
	require.NoError(t, store.Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateWritesVitalsJSON(t *testing.T) {
	store, mock := newMockStore(t)

	vitalsJSON := []byte(`{"blood_pressure":"120/80","heart_rate":72,"temperature":36.8,"oxygen_saturation":98}`)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "patient", "Ada", "Obi", "ada@example.com", "hash", "",
			"1990-04-02", "O+", "", vitalsJSON,
			"", "", 0, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &User{
		Role:         RolePatient,
		FirstName:    "Ada",
		LastName:     "Obi",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		DateOfBirth:  "1990-04-02",
		BloodType:    "O+",
		Vitals:       &Vitals{BloodPressure: "120/80", HeartRate: 72, Temperature: 36.8, OxygenSaturation: 98},
	}
	require.NoError(t, store.Create(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetByEmailLowercases(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
		WithArgs("ada@example.com").
		WillReturnRows(userRows().AddRow(
			"u1", "patient", "Ada", "Obi", "ada@example.com", "hash", "",
			"1990-04-02", "O+", "", []byte(`{"blood_pressure":"120/80","heart_rate":72,"temperature":36.8,"oxygen_saturation":98}`),
			"", "", 0, "", time.Now()))

	u, err := store.GetByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	require.NotNil(t, u.Vitals)
	assert.Equal(t, 72, u.Vitals.HeartRate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListDoctors(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE role = 'doctor'`).
		WillReturnRows(userRows().
			AddRow("d1", "doctor", "Greg", "House", "house@example.com", "hash", "",
				"", "", "", nil, "Diagnostics", "MD-123", 15, "Princeton Plainsboro", time.Now()).
			AddRow("d2", "doctor", "Lisa", "Cuddy", "cuddy@example.com", "hash", "",
				"", "", "", nil, "Endocrinology", "MD-456", 12, "Princeton Plainsboro", time.Now()))

	doctors, err := store.ListDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Diagnostics", doctors[0].Specialization)
}

func TestStoreListDoctorsBySpecialization(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE role = 'doctor' AND specialization`).
		WithArgs("Cardiology").
		WillReturnRows(userRows().AddRow(
			"d1", "doctor", "Greg", "House", "house@example.com", "hash", "",
			"", "", "", nil, "Cardiology", "MD-123", 15, "Princeton Plainsboro", time.Now()))

	doctors, err := store.ListDoctorsBySpecialization(context.Background(), "Cardiology")
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "d1", doctors[0].ID)
}

func TestStoreUpdateVitalsPatientOnly(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET vitals`).
		WithArgs("d1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateVitals(context.Background(), "d1", Vitals{HeartRate: 70})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUpdatePassword(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("u1", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdatePassword(context.Background(), "u1", "newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
