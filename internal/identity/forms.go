package identity

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/agenthands/cogniscan/internal/apperr"
)

type LoginForm struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

type RegisterForm struct {
	Name            string `form:"name" json:"name" validate:"required"`
	Email           string `form:"email" json:"email" validate:"required,email"`
	Password        string `form:"password" json:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword" validate:"required,eqfield=Password"`
}

var formMessages = map[string]string{
	"Name.required":            "Name should not be empty.",
	"Email.required":           "Email address should not be empty.",
	"Email.email":              "Invalid email address.",
	"Password.required":        "Password should not be empty.",
	"Password.min":             "Password should be at least 8 characters long.",
	"ConfirmPassword.required": "Password should not be empty.",
	"ConfirmPassword.eqfield":  "Passwords must be matched.",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateForm checks a login or register form and returns the first failure
// as a ValidationError.
func ValidateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	msg, ok := formMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = "Invalid " + fe.Field() + "."
	}
	return &apperr.ValidationError{Field: fe.Field(), Message: msg}
}
