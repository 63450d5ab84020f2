package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds, in bytes. bcrypt truncates input after 72 bytes,
// so longer passwords are rejected instead of silently shortened.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService wraps bcrypt with a configurable cost. Tests use
// bcrypt.MinCost to keep hashing fast.
type PasswordService struct {
	cost int
	// dummy is compared against when the account does not exist, so an
	// unknown email costs the same time as a wrong password.
	dummy []byte
}

func NewPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(DefaultCost)
}

func NewPasswordServiceWithCost(cost int) *PasswordService {
	dummy, err := bcrypt.GenerateFromPassword([]byte("recipe-api-dummy"), cost)
	if err != nil {
		// Only an out-of-range cost gets here.
		panic(fmt.Sprintf("auth: invalid bcrypt cost %d: %v", cost, err))
	}
	return &PasswordService{cost: cost, dummy: dummy}
}

// Hash returns the self-describing bcrypt string ($2a$<cost>$<salt><hash>)
// to store in users.password_hash.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordLength {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch
// when it does not.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyMissing burns one comparison for a login against an unknown account.
// It always returns ErrPasswordMismatch.
func (p *PasswordService) VerifyMissing(plaintext string) error {
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plaintext))
	return ErrPasswordMismatch
}
