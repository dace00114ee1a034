package doctorsearch

import (
	"context"
	"strings"

	"github.com/rolacode/telehealth-platform/internal/users"
)

// specializationBySymptom maps a normalized symptom to the specialty
// that treats it.
var specializationBySymptom = map[string]string{
	"fever":           "General Practice",
	"rash":            "Dermatology",
	"chestpain":       "Cardiology",
	"headache":        "Neurology",
	"anxiety":         "Psychiatry",
	"bonepain":        "Orthopedics",
	"childfever":      "Pediatrics",
	"cancerscreening": "Oncology",
}

// SpecializationFor resolves a symptom to a specialization. Matching is
// case-insensitive and ignores spaces, so "Chest Pain" and "chestpain"
// are the same symptom.
func SpecializationFor(symptom string) (string, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(symptom), " ", ""))
	specialization, ok := specializationBySymptom[key]
	return specialization, ok
}

// Symptoms returns every symptom the directory knows about.
func Symptoms() []string {
	out := make([]string, 0, len(specializationBySymptom))
	for symptom := range specializationBySymptom {
		out = append(out, symptom)
	}
	return out
}

// DoctorLister finds doctors by specialization.
type DoctorLister interface {
	ListDoctorsBySpecialization(ctx context.Context, specialization string) ([]users.User, error)
}
