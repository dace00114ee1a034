package appointments

import "time"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Appointment is a scheduled visit between a patient and a doctor.
type Appointment struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	DoctorID    string    `json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason,omitempty"`
	Status      Status    `json:"status"`
	// ResponseMessage is the doctor's note attached when responding.
	ResponseMessage string    `json:"response_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
