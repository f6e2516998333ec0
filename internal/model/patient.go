package model

// PatientAttributes is the fixed schema for a single-patient prediction.
type PatientAttributes struct {
	PatientID string `json:"NACCID,omitempty" form:"NACCID"`
	BirthYear int    `json:"BIRTHYR" form:"BIRTHYR" validate:"gte=1875,lte=2100"`
	Sex       int    `json:"SEX" form:"SEX" validate:"oneof=1 2"`
	Education int    `json:"EDUC" form:"EDUC" validate:"gte=0,lte=99"`
	UDSBENTC  int    `json:"UDSBENTC" form:"UDSBENTC" validate:"gte=-4,lte=99"`
	MOCATRAI  int    `json:"MOCATRAI" form:"MOCATRAI" validate:"gte=-4,lte=99"`
	AMNDEM    int    `json:"AMNDEM" form:"AMNDEM" validate:"gte=-4,lte=99"`
	NACCPPAG  int    `json:"NACCPPAG" form:"NACCPPAG" validate:"gte=-4,lte=99"`
	AMYLPET   int    `json:"AMYLPET" form:"AMYLPET" validate:"gte=-4,lte=99"`
	DYSILL    int    `json:"DYSILL" form:"DYSILL" validate:"gte=-4,lte=99"`
	DYSILLIF  int    `json:"DYSILLIF" form:"DYSILLIF" validate:"gte=-4,lte=99"`
}
