package api

import "time"

// Meta is the pagination block every list endpoint returns. List helpers on
// Client default it to zeroes when the server sends no payload.
type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// User is a platform account (patient, doctor or admin).
type User struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Avatar        string    `json:"avatar,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	DateOfBirth   string    `json:"dateOfBirth,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	DoctorRequest bool      `json:"doctorRequest,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

// Doctor is the extended profile a user gains after doctor registration.
type Doctor struct {
	ID             string   `json:"_id"`
	UserID         string   `json:"userId"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Avatar         string   `json:"avatar,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
	Hospital       string   `json:"hospital,omitempty"`
	Experience     int      `json:"experience,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	Patients       []string `json:"patients,omitempty"`
}

// Appointment is a booked consultation between a patient and a doctor.
type Appointment struct {
	ID        string    `json:"_id"`
	PatientID string    `json:"patientId"`
	DoctorID  string    `json:"doctorId"`
	Date      time.Time `json:"date"`
	TimeSlot  string    `json:"timeSlot,omitempty"`
	Type      string    `json:"type,omitempty"`   // "chat" | "video"
	Status    string    `json:"status,omitempty"` // "pending" | "confirmed" | "cancelled" | "completed"
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// AppointmentFilter narrows GET /appointments. Zero values are omitted from
// the query string.
type AppointmentFilter struct {
	Page      int
	Limit     int
	Status    string
	Type      string
	StartDate string
	EndDate   string
}

// Prescription is one medication entry attached to a vitals record.
type Prescription struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// LabTest is one ordered lab test attached to a vitals record.
type LabTest struct {
	ID     string `json:"_id,omitempty"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Result string `json:"result,omitempty"`
}

// Vital is one vitals reading for a patient, with whatever the attending
// doctor layered on top of it.
type Vital struct {
	ID             string         `json:"_id"`
	PatientID      string         `json:"patientId"`
	DoctorID       string         `json:"doctorId,omitempty"`
	HeartRate      float64        `json:"heartRate,omitempty"`
	BloodPressure  string         `json:"bloodPressure,omitempty"`
	Temperature    float64        `json:"temperature,omitempty"`
	OxygenLevel    float64        `json:"oxygenLevel,omitempty"`
	GlucoseLevel   float64        `json:"glucoseLevel,omitempty"`
	Weight         float64        `json:"weight,omitempty"`
	Prescriptions  []Prescription `json:"prescriptions,omitempty"`
	LabTests       []LabTest      `json:"labTests,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	CreatedAt      time.Time      `json:"createdAt,omitempty"`
}

// ChatMessage is one persisted chat message between two users.
type ChatMessage struct {
	ID         string    `json:"_id,omitempty"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Message    string    `json:"message"`
	Monitored  bool      `json:"monitored,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Notification is created server-side and mutated only via acknowledge or
// delete — never created by this client.
type Notification struct {
	ID           string    `json:"_id"`
	Sender       string    `json:"sender"`
	Receiver     string    `json:"receiver"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// Analytics is the per-patient summary used by the dashboards.
type Analytics struct {
	PatientID         string  `json:"patientId"`
	AppointmentsTotal int     `json:"appointmentsTotal"`
	VitalsTotal       int     `json:"vitalsTotal"`
	AvgHeartRate      float64 `json:"avgHeartRate,omitempty"`
	AvgOxygenLevel    float64 `json:"avgOxygenLevel,omitempty"`
	AvgGlucoseLevel   float64 `json:"avgGlucoseLevel,omitempty"`
}
