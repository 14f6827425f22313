package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	t.Parallel()

	otp, err := GenerateOTP()
	require.NoError(t, err)

	assert.Len(t, otp.Code, otpLength)
	for _, c := range otp.Code {
		assert.True(t, c >= '0' && c <= '9', "OTP must be numeric, got %q", otp.Code)
	}

	assert.WithinDuration(t, time.Now().UTC().Add(OTPTTL), otp.ExpiresAt, time.Minute)
}

func TestOTP_Expired(t *testing.T) {
	t.Parallel()

	otp := &OTP{Code: "123", ExpiresAt: time.Now().UTC().Add(OTPTTL)}

	assert.False(t, otp.Expired(time.Now().UTC()))
	assert.True(t, otp.Expired(time.Now().UTC().Add(OTPTTL+time.Second)))
}
