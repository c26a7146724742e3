package domain

import "time"

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"

	MaritalSingle  = "single"
	MaritalMarried = "married"
)

// UserProfile holds the birth details required for chart computation.
// One profile per user; registered once and updated in place.
type UserProfile struct {
	ProfileID     string    `json:"id" dynamodbav:"profile_id"`
	UserID        string    `json:"user_id" dynamodbav:"user_id"`
	FullName      string    `json:"full_name" dynamodbav:"full_name"`
	Gender        string    `json:"gender" dynamodbav:"gender"`
	MaritalStatus string    `json:"marital_status" dynamodbav:"marital_status"`
	DateOfBirth   string    `json:"date_of_birth" dynamodbav:"date_of_birth"`   // YYYY-MM-DD
	TimeOfBirth   string    `json:"time_of_birth" dynamodbav:"time_of_birth"`   // HH:MM
	PlaceOfBirth  string    `json:"place_of_birth" dynamodbav:"place_of_birth"`
	Timezone      string    `json:"timezone" dynamodbav:"timezone"`
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// RegisterProfileRequest is the payload for the one-time profile registration.
type RegisterProfileRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	Gender        string `json:"gender" validate:"required,oneof=male female other"`
	MaritalStatus string `json:"marital_status" validate:"required,oneof=single married"`
	DateOfBirth   string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	TimeOfBirth   string `json:"time_of_birth" validate:"required,datetime=15:04"`
	PlaceOfBirth  string `json:"place_of_birth" validate:"required"`
	Timezone      string `json:"timezone" validate:"required"`
}

// UpdateProfileRequest carries optional fields; only non-nil ones are applied.
type UpdateProfileRequest struct {
	FullName      *string `json:"full_name"`
	Gender        *string `json:"gender" validate:"omitempty,oneof=male female other"`
	MaritalStatus *string `json:"marital_status" validate:"omitempty,oneof=single married"`
	DateOfBirth   *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	TimeOfBirth   *string `json:"time_of_birth" validate:"omitempty,datetime=15:04"`
	PlaceOfBirth  *string `json:"place_of_birth"`
	Timezone      *string `json:"timezone"`
}
