package models

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordAlgorithm identifies the hashing scheme a PasswordHash was produced
// with. Only Bcrypt is implemented; the others are recognized so that stored
// records created under a future algorithm fail predictably rather than
// silently misverifying.
type PasswordAlgorithm int

const (
	PasswordAlgorithmBcrypt PasswordAlgorithm = iota
	PasswordAlgorithmArgon2
	PasswordAlgorithmPbkdf2
)

// ErrNotImplemented is returned by Verify for any algorithm other than bcrypt.
var ErrNotImplemented = errors.New("models: password algorithm not implemented")

// PasswordHash is the stored representation of a user's credential.
type PasswordHash struct {
	Hash      string
	Algorithm PasswordAlgorithm
	Salt      []byte
}

// NewBcryptPassword hashes pw with bcrypt at the default cost.
func NewBcryptPassword(pw string) (PasswordHash, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return PasswordHash{}, err
	}
	return PasswordHash{Hash: string(h), Algorithm: PasswordAlgorithmBcrypt}, nil
}

// Verify reports whether pw matches the stored hash. Only bcrypt is
// supported; any other algorithm value returns ErrNotImplemented, matching
// the reference implementation, which never implemented the other two.
func (p PasswordHash) Verify(pw string) (bool, error) {
	if p.Algorithm != PasswordAlgorithmBcrypt {
		return false, ErrNotImplemented
	}
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(pw))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// MfaMethod enumerates the supported second-factor mechanisms a user can
// have configured. Persisted and listed only; no challenge flow is
// implemented (see SPEC_FULL.md §3).
type MfaMethod int

const (
	MfaMethodTotp MfaMethod = iota
	MfaMethodSms
	MfaMethodFido2
	MfaMethodEmailOtp
)

func (m MfaMethod) String() string {
	switch m {
	case MfaMethodTotp:
		return "totp"
	case MfaMethodSms:
		return "sms"
	case MfaMethodFido2:
		return "fido2"
	case MfaMethodEmailOtp:
		return "email_otp"
	default:
		return "unknown"
	}
}
