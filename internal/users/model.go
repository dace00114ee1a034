package users

import "time"

// Role distinguishes the two kinds of account.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// Vitals is the most recent measurement set recorded for a patient.
type Vitals struct {
	BloodPressure    string  `json:"blood_pressure"`
	HeartRate        int     `json:"heart_rate"`
	Temperature      float64 `json:"temperature"`
	OxygenSaturation int     `json:"oxygen_saturation"`
}

// User is a registered doctor or patient.
type User struct {
	ID           string `json:"id"`
	Role         Role   `json:"role"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	ImageURL     string `json:"image,omitempty"`

	// Patient fields.
	DateOfBirth string  `json:"date_of_birth,omitempty"`
	BloodType   string  `json:"blood_type,omitempty"`
	Allergies   string  `json:"allergies,omitempty"`
	Vitals      *Vitals `json:"vitals,omitempty"`

	// Doctor fields.
	Specialization    string `json:"specialization,omitempty"`
	LicenseNumber     string `json:"license_number,omitempty"`
	YearsOfExperience int    `json:"years_of_experience,omitempty"`
	Hospital          string `json:"hospital,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
