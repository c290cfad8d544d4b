// internal/auth/reset.go
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// ResetWindowMinutes bounds both the OTP and the verified-reset token.
// Kept in one place so the two stages cannot drift apart.
const ResetWindowMinutes = 10

// GenerateOTP returns a 6-digit numeric one-time code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashOTP produces the one-way digest stored in place of the raw code.
func HashOTP(otp string) string {
	sum := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(sum[:])
}

// GenerateResetToken returns an opaque single-use token handed out after a
// successful OTP verification.
func GenerateResetToken() string {
	return uuid.New().String()
}

// GenerateStateValue returns a random hex value for OAuth state and nonce
// cookies.
func GenerateStateValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random value: %w", err)
	}
	return hex.EncodeToString(b), nil
}
