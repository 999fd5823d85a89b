package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型. Scopes holds the comma-joined topic:role grants the
// principal carries, e.g. "macro:editor,global:admin". They are parsed once
// at the HTTP boundary by the permission package, never downstream.
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null"`
	Scopes   string `gorm:"size:1024"`
	// TokenHint is the first segment of the API token, kept in clear for
	// lookup; the full token is only stored as a bcrypt digest.
	TokenHint   string `gorm:"size:16;index"`
	TokenDigest string `gorm:"size:128"`
}

// EnsureUser creates a bcrypt-hashed user with the given scope grants when
// the username does not exist yet. Empty username or password is a no-op.
func EnsureUser(gdb *gorm.DB, username, password, scopes string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if gdb == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := gdb.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return gdb.Create(&User{
			Username: trimmedUser,
			Password: string(hashed),
			Scopes:   strings.TrimSpace(scopes),
		}).Error
	}

	return nil
}
