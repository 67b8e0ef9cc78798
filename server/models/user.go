package models

import (
	"fmt"

	"github.com/abaur/rolodex/server/auth"
)

const DEFAULT_SUBSCRIPTION = "starter"

var userFieldsExceptPassword = []string{"id",
	"email",
	"avatar_url",
	"verification_token",
	"verify",
	"subscription",
	"created_at",
	"updated_at",
}

// User is an account that is either pending email verification
// (verify=false, token set) or verified (verify=true, token null).
// The two states are mutually exclusive and the transition is one-way.
type User struct {
	BaseModel
	Email             string  `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password          string  `json:"password,omitempty" validate:"required" gorm:"not null"`
	AvatarURL         string  `json:"avatar_url,omitempty"`
	VerificationToken *string `json:"-"`
	Verify            bool    `json:"verify" gorm:"not null;default:false"`
	Subscription      string  `json:"subscription" gorm:"not null"`
}

// CreateUser hashes the user's password & persists the record. A unique
// constraint violation on email surfaces as ErrEmailInUse, which closes
// the exists-check/insert race for concurrent signups.
func CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	if user.Subscription == "" {
		user.Subscription = DEFAULT_SUBSCRIPTION
	}

	return refineError(db.Create(user).Error)
}

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Select(userFieldsExceptPassword).
		First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, refineError(err)
	}

	return &user, nil
}

// PendingVerificationToken returns the token a verification email should
// carry, or ErrAlreadyVerified once the user has completed verification.
func (user *User) PendingVerificationToken() (string, error) {
	// A nil token implies the verified state, per the user invariant
	if user.Verify || user.VerificationToken == nil {
		return "", ErrAlreadyVerified
	}

	return *user.VerificationToken, nil
}

// MarkAsVerified flips the user to the verified state & clears the
// verification token in a single update, so a used token can never
// match again.
func (user *User) MarkAsVerified() error {
	err := db.Model(user).
		Select("verify", "verification_token").
		Updates(map[string]interface{}{"verify": true, "verification_token": nil}).Error
	if err != nil {
		return err
	}

	user.Verify = true
	user.VerificationToken = nil

	return nil
}
