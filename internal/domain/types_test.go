package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		req    SendRequest
		fields []string
		msg    string
	}{
		{"valid", SendRequest{Phone: "9876543210", Message: "Hello"}, nil, ""},
		{"missing phone", SendRequest{Message: "Hi"}, []string{FieldPhone}, "The phone field is required."},
		{"missing message", SendRequest{Phone: "9876543210"}, []string{FieldMessage}, "The message field is required."},
		{"missing both", SendRequest{}, []string{FieldPhone, FieldMessage}, "The phone field is required. The message field is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestOutcomeVariants(t *testing.T) {
	ok := Succeeded(SuccessDetail)
	assert.True(t, ok.OK)
	assert.Equal(t, "WhatsApp message sent successfully!", ok.Detail)
	assert.NoError(t, ok.Err)

	cause := errors.New("Authenticate")
	failed := Failed(&ProviderError{Err: cause})
	assert.False(t, failed.OK)
	assert.Equal(t, "Authenticate", failed.Detail)
	assert.ErrorIs(t, failed.Err, cause)

	_, isValidation := failed.FieldErrors()
	assert.False(t, isValidation)
}

func TestOutcomeFieldErrors(t *testing.T) {
	err := SendRequest{Message: "Hi"}.Validate()
	out := Failed(err)

	fields, ok := out.FieldErrors()
	require.True(t, ok)
	assert.Equal(t, "The phone field is required.", fields[FieldPhone])
}
