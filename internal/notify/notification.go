package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is the payload handed to the push-delivery worker. Data values
// must be strings end to end, matching what the mobile clients expect.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func consultationData(kind string, consultationID, patientID, doctorID uuid.UUID, date, clock string) map[string]string {
	return map[string]string{
		"type":              kind,
		"consultation_id":   consultationID.String(),
		"patient_id":        patientID.String(),
		"doctor_id":         doctorID.String(),
		"consultation_date": date,
		"start_time":        clock,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}
}

// BookingRequest tells the doctor a patient has asked for a consultation.
func BookingRequest(consultationID, patientID, doctorID uuid.UUID, date, clock string) Notification {
	return Notification{
		Title: "New Consultation Request",
		Body:  fmt.Sprintf("A patient has booked a consultation for %s at %s", date, clock),
		Data:  consultationData("consultation_booking", consultationID, patientID, doctorID, date, clock),
	}
}

// Acceptance tells the patient the doctor confirmed the consultation.
func Acceptance(consultationID, patientID, doctorID uuid.UUID, date, clock string) Notification {
	return Notification{
		Title: "Consultation Accepted",
		Body:  fmt.Sprintf("Your doctor has accepted your consultation for %s at %s", date, clock),
		Data:  consultationData("consultation_accepted", consultationID, patientID, doctorID, date, clock),
	}
}

// Reminder is sent to both participants shortly before the consultation starts.
func Reminder(consultationID, patientID, doctorID uuid.UUID, date, clock string) Notification {
	return Notification{
		Title: "Consultation Reminder",
		Body:  fmt.Sprintf("You have a consultation today at %s", clock),
		Data:  consultationData("consultation_reminder", consultationID, patientID, doctorID, date, clock),
	}
}
