package appointments

import (
	"context"
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
	store := NewStore(db)
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

func expectDoctorExists(mock sqlmock.Sqlmock, doctorID string, exists bool) {
	mock.ExpectQuery(`SELECT 1 FROM users`).
		WithArgs(doctorID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestBookRejectsPastDate(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.Book(context.Background(), &Appointment{
		PatientID:   "p1",
		DoctorID:    "d1",
		ScheduledAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestBookAllowsLaterToday(t *testing.T) {
	store, mock := newMockStore(t)
	// "Now" is 2026-03-01 12:00 UTC; a morning slot the same day still books.
	slot := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	expectDoctorExists(mock, "d1", true)
	mock.ExpectQuery(`SELECT 1 FROM appointments`).
		WithArgs("p1", "d1", slot).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO appointments`).
		WithArgs(sqlmock.AnyArg(), "p1", "d1", slot, "", "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Book(context.Background(), &Appointment{
		PatientID:   "p1",
		DoctorID:    "d1",
		ScheduledAt: slot,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRejectsUnknownDoctor(t *testing.T) {
	store, mock := newMockStore(t)
	slot := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	expectDoctorExists(mock, "nobody", false)

	err := store.Book(context.Background(), &Appointment{
		PatientID:   "p1",
		DoctorID:    "nobody",
		ScheduledAt: slot,
	})
	assert.ErrorIs(t, err, ErrUnknownDoctor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRejectsSecondBookingSameDay(t *testing.T) {
	store, mock := newMockStore(t)
	// A different hour on the same date still counts as a duplicate.
	slot := time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)

	expectDoctorExists(mock, "d1", true)
	mock.ExpectQuery(`SELECT 1 FROM appointments`).
		WithArgs("p1", "d1", slot).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := store.Book(context.Background(), &Appointment{
		PatientID:   "p1",
		DoctorID:    "d1",
		ScheduledAt: slot,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookInsertsPending(t *testing.T) {
	store, mock := newMockStore(t)
	slot := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	expectDoctorExists(mock, "d1", true)
	mock.ExpectQuery(`SELECT 1 FROM appointments`).
		WithArgs("p1", "d1", slot).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO appointments`).
		WithArgs(sqlmock.AnyArg(), "p1", "d1", slot, "checkup", "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	appt := &Appointment{PatientID: "p1", DoctorID: "d1", ScheduledAt: slot, Reason: "checkup"}
	require.NoError(t, store.Book(context.Background(), appt))
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, StatusPending, appt.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func appointmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "scheduled_at", "reason", "status", "response_message", "created_at"})
}

func TestListForDoctor(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM appointments WHERE doctor_id`).
		WithArgs("d1").
		WillReturnRows(appointmentRows().
			AddRow("a1", "p1", "d1", time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), "checkup", "pending", "", time.Now()).
			AddRow("a2", "p2", "d1", time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), "", "accepted", "see you then", time.Now()))

	appts, err := store.ListForDoctor(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, StatusPending, appts[0].Status)
	assert.Equal(t, StatusAccepted, appts[1].Status)
	assert.Equal(t, "see you then", appts[1].ResponseMessage)
}

func TestHistoryForPatient(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM appointments WHERE patient_id`).
		WithArgs("p1").
		WillReturnRows(appointmentRows().
			AddRow("a2", "p1", "d2", time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), "", "declined", "fully booked", time.Now()).
			AddRow("a1", "p1", "d1", time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), "checkup", "accepted", "", time.Now()))

	appts, err := store.HistoryForPatient(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "a2", appts[0].ID)
	assert.Equal(t, "fully booked", appts[0].ResponseMessage)
}

func TestRespondAccept(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE appointments SET status`).
		WithArgs("a1", "d1", "accepted", "see you at nine").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Respond(context.Background(), "a1", "d1", StatusAccepted, "see you at nine"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondWrongDoctorNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE appointments SET status`).
		WithArgs("a1", "other-doctor", "declined", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Respond(context.Background(), "a1", "other-doctor", StatusDeclined, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRespondRejectsInvalidStatus(t *testing.T) {
	store, _ := newMockStore(t)
	err := store.Respond(context.Background(), "a1", "d1", StatusPending, "")
	assert.Error(t, err)
}
