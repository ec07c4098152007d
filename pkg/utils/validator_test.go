package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stayForm struct {
	RoomID   string      `json:"room_id" validate:"required,uuid4"`
	CheckIn  string      `json:"check_in" validate:"required,date"`
	Guests   []stayGuest `json:"guests" validate:"required,min=1,dive"`
	Deposit  int64       `json:"deposit" validate:"omitempty,gt=0"`
	Internal string      `json:"-"`
}

type stayGuest struct {
	Adults int `json:"adults" validate:"gte=1"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	errs := ValidateStruct(stayForm{
		RoomID:  "not-a-uuid",
		CheckIn: "01/06/2024",
		Guests:  []stayGuest{{Adults: 2}, {Adults: 0}},
		Deposit: -1,
	})

	assert.Equal(t, map[string]string{
		"room_id":          "Must be a valid UUID",
		"check_in":         "Must be a date in format 2006-01-02",
		"guests[1].adults": "Must be at least 1",
		"deposit":          "Must be greater than 0",
	}, errs)
}

func TestValidateStructSliceBounds(t *testing.T) {
	errs := ValidateStruct(stayForm{
		RoomID:  "9b2f8c1e-4f7a-4c1d-9a3e-2b6d5e8f7a10",
		CheckIn: "2024-06-01",
		Guests:  []stayGuest{},
	})

	assert.Equal(t, map[string]string{"guests": "Must contain at least 1 item(s)"}, errs)
}

func TestValidateStructAcceptsValidInput(t *testing.T) {
	assert.Nil(t, ValidateStruct(stayForm{
		RoomID:  "9b2f8c1e-4f7a-4c1d-9a3e-2b6d5e8f7a10",
		CheckIn: "2024-06-01T14:00:00Z",
		Guests:  []stayGuest{{Adults: 1}},
	}))
}

func TestFormatValidationErrorsIsSorted(t *testing.T) {
	msg := FormatValidationErrors(map[string]string{
		"check_out": "This field is required",
		"check_in":  "This field is required",
	})

	assert.Equal(t, "check_in: This field is required; check_out: This field is required", msg)
}
