package model

// Diagnostic classes (NACCUDSD).
const (
	ClassNormal   = 1
	ClassImpaired = 2
	ClassMCI      = 3
	ClassDementia = 4
)

// Sex codes as recorded in the NACC dataset.
const (
	SexMale   = 1
	SexFemale = 2
)

// PredictionRecord is one patient row returned by the backend. Age and Sex are
// only present in the newer response shape.
type PredictionRecord struct {
	PatientID  string `json:"NACCID"`
	ClassLabel int    `json:"NACCUDSD"`
	Age        *int   `json:"AGE,omitempty"`
	Sex        *int   `json:"SEX,omitempty"`
}

// ValidClass reports whether the label is one of the four diagnostic classes.
func (r PredictionRecord) ValidClass() bool {
	return r.ClassLabel >= ClassNormal && r.ClassLabel <= ClassDementia
}

// ClassName returns the short name used in charts.
func ClassName(code int) string {
	switch code {
	case ClassNormal:
		return "Normal"
	case ClassImpaired:
		return "Impaired"
	case ClassMCI:
		return "MCI"
	case ClassDementia:
		return "Dementia"
	default:
		return "Unknown"
	}
}

// ClassLabel returns the full clinical label for a class code.
func ClassLabel(code int) string {
	switch code {
	case ClassNormal:
		return "Normal Cognition"
	case ClassImpaired:
		return "Cognitively Impaired, but not MCI"
	case ClassMCI:
		return "Either amnestic or non-amnestic MCI"
	case ClassDementia:
		return "Dementia"
	default:
		return "Unknown"
	}
}
