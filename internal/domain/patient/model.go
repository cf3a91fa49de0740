package patient

import "time"

// Patient is owned by exactly one hospital. Dob is a calendar date in
// YYYY-MM-DD form.
type Patient struct {
	ID               int64     `json:"id"`
	HospitalID       int64     `json:"hospital_id"`
	HospitalName     *string   `json:"hospital_name,omitempty"`
	FullName         string    `json:"full_name"`
	Dob              *string   `json:"dob"`
	Gender           *string   `json:"gender"`
	Phone            *string   `json:"phone"`
	Email            *string   `json:"email"`
	Address          *string   `json:"address"`
	EmergencyContact *string   `json:"emergency_contact"`
	BloodType        *string   `json:"blood_type"`
	Allergies        *string   `json:"allergies"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateRequest struct {
	HospitalID       *int64  `json:"hospital_id"`
	FullName         string  `json:"full_name"`
	Dob              *string `json:"dob"`
	Gender           *string `json:"gender"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergency_contact"`
	BloodType        *string `json:"blood_type"`
	Allergies        *string `json:"allergies"`
}

// UpdateRequest is a partial update. Nil fields keep their stored value.
type UpdateRequest struct {
	FullName         *string `json:"full_name"`
	Dob              *string `json:"dob"`
	Gender           *string `json:"gender"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergency_contact"`
	BloodType        *string `json:"blood_type"`
	Allergies        *string `json:"allergies"`
}

// Apply copies the non-nil fields of req onto pt.
func (req UpdateRequest) Apply(pt *Patient) {
	if req.FullName != nil {
		pt.FullName = *req.FullName
	}
	set := func(dst **string, src *string) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	set(&pt.Dob, req.Dob)
	set(&pt.Gender, req.Gender)
	set(&pt.Phone, req.Phone)
	set(&pt.Email, req.Email)
	set(&pt.Address, req.Address)
	set(&pt.EmergencyContact, req.EmergencyContact)
	set(&pt.BloodType, req.BloodType)
	set(&pt.Allergies, req.Allergies)
}

// MedicalRecord is read-only here; records are written by clinical systems.
type MedicalRecord struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patient_id"`
	DoctorID   *int64    `json:"doctor_id"`
	DoctorName *string   `json:"doctor_name"`
	Diagnosis  *string   `json:"diagnosis"`
	Treatment  *string   `json:"treatment"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
