package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type supplierInput struct {
	Name  string  `json:"name" validate:"notblank,max=255"`
	INN   string  `json:"inn" validate:"inn"`
	Type  string  `json:"type" validate:"omitempty,oneof=prod alco all"`
	Phone *string `json:"phone" validate:"omitempty,phone"`
}

func TestPatterns(t *testing.T) {
	assert.True(t, ValidPhone("+79991234567"))
	assert.True(t, ValidPhone("123456789"))
	assert.False(t, ValidPhone("12345"))
	assert.False(t, ValidPhone("+7 999 123"))

	assert.True(t, ValidINN("7707083893"))
	assert.True(t, ValidINN("500100732259"))
	assert.False(t, ValidINN("77070838"))
	assert.False(t, ValidINN("77070838931a"))
}

func TestStructReportsEveryField(t *testing.T) {
	phone := "12"
	err := Struct(supplierInput{Name: "  ", INN: "abc", Type: "wine", Phone: &phone})

	var vErr *Errors
	require.True(t, errors.As(err, &vErr))

	codes := map[string]string{}
	for _, f := range vErr.Fields {
		codes[f.Field] = f.Code
	}
	assert.Equal(t, map[string]string{
		"name":  "required",
		"inn":   "invalid_inn",
		"type":  "invalid_choice",
		"phone": "invalid_phone",
	}, codes)
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, Struct(supplierInput{Name: "Fresh Farm", INN: "7707083893", Type: "all"}))
}
