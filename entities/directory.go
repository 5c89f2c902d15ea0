package entities

import "encoding/json"

// Doctor is a bookable doctor.
type Doctor struct {
	ID              FlexID  `json:"id"`
	Name            string  `json:"name"`
	Department      string  `json:"department"`
	Specialization  string  `json:"specialization,omitempty"`
	ConsultationFee float64 `json:"consultation_fee,omitempty"`
}

// Department of a hospital.
type Department struct {
	ID          FlexID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Profile is the signed-in user as the API describes them.
type Profile struct {
	ID       FlexID `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
}

// Credentials are what the login form submits.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the normalised login response.
type LoginResult struct {
	Token       string
	UserID      string
	Role        Role
	DisplayName string
}

func (d *Doctor) UnmarshalJSON(data []byte) error {
	type plain Doctor
	var w struct {
		plain
		DoctorName     string `json:"doctor_name"`
		FullName       string `json:"full_name"`
		DepartmentName string `json:"department_name"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*d = Doctor(w.plain)
	d.Name = firstNonEmpty(d.Name, w.DoctorName, w.FullName)
	d.Department = firstNonEmpty(d.Department, w.DepartmentName)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
