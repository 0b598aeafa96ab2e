package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{10, "10.00"},
		{10.5, "10.50"},
		{0.125, "0.13"},
		{1234567.891, "1234567.89"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.in))
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 19.99, Round(19.994))
	assert.Equal(t, 20.0, Round(19.999))
}
