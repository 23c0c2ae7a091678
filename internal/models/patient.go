package models

// Sex is the administrative sex of a patient, reduced to the closed
// enumeration this deployment stores.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// SexFromHL7 maps an HL7 administrative sex code (PID-8) to the stored
// enumeration. Anything but M or F, including O, U and empty, collapses
// to other.
func SexFromHL7(code string) Sex {
	switch code {
	case "M":
		return SexMale
	case "F":
		return SexFemale
	default:
		return SexOther
	}
}

// Patient is the demographic record keyed by the 14-digit national
// identifier. Admit messages replace the whole record; there is no partial
// merge.
type Patient struct {
	NationalID  string `json:"national_id"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"` // YYYYMMDD or vendor passthrough
	Sex         Sex    `json:"sex"`
	Address     string `json:"address"`
}
