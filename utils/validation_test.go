package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments-authorizenet/models"
)

func TestValidateStruct(t *testing.T) {
	ok := models.CreatePaymentRequest{Total: 10, Currency: "USD", SuccessURL: "https://shop.example/ok"}
	require.NoError(t, ValidateStruct(ok))

	err := ValidateStruct(models.CreatePaymentRequest{Currency: "US", SuccessURL: "not a url"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "total is required")
	assert.Contains(t, err.Error(), "currency must be exactly 3 characters long")
	assert.Contains(t, err.Error(), "success_url must be a valid URL")
}

func TestValidateStructNegativeTotal(t *testing.T) {
	err := ValidateStruct(models.CreatePaymentRequest{Total: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total must be greater than 0")
}
