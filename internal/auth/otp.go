package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	otpLength = 3
	OTPTTL    = 10 * time.Minute
)

// OTP is a short-lived numeric passcode mailed to the user for account
// verification and password resets.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

func GenerateOTP() (*OTP, error) {
	digits := make([]byte, otpLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return nil, err
		}
		digits[i] = '0' + byte(n.Int64())
	}

	return &OTP{
		Code:      string(digits),
		ExpiresAt: time.Now().UTC().Add(OTPTTL),
	}, nil
}

func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
