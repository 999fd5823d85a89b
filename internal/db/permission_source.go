package db

import (
	"context"
	"errors"
	"strings"

	"github.com/newsdesk/internal/permission"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrUnknownPrincipal reports a credential that resolves to no user.
var ErrUnknownPrincipal = errors.New("unknown principal")

// UserSource resolves credentials against the users table. It implements
// service.PermissionSource: scope strings are parsed here, at the boundary,
// and nothing downstream sees them raw.
type UserSource struct {
	db *gorm.DB
}

// NewUserSource creates a UserSource instance.
func NewUserSource(gdb *gorm.DB) *UserSource {
	return &UserSource{db: gdb}
}

// ResolveToken resolves an API token of the form "<hint>.<secret>". The hint
// narrows the candidate rows; the full token is verified against the stored
// bcrypt digest.
func (s *UserSource) ResolveToken(ctx context.Context, token string) (permission.Principal, error) {
	hint, _, ok := strings.Cut(token, ".")
	if !ok || hint == "" {
		return permission.Principal{}, ErrUnknownPrincipal
	}

	var candidates []User
	if err := s.db.WithContext(ctx).
		Where("token_hint = ?", hint).
		Find(&candidates).Error; err != nil {
		return permission.Principal{}, err
	}

	for i := range candidates {
		if candidates[i].TokenDigest == "" {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].TokenDigest), []byte(token)) == nil {
			return principalFor(&candidates[i]), nil
		}
	}

	return permission.Principal{}, ErrUnknownPrincipal
}

// ResolveUser resolves a session user id, the interactive login path.
func (s *UserSource) ResolveUser(ctx context.Context, userID uint) (permission.Principal, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return permission.Principal{}, ErrUnknownPrincipal
		}
		return permission.Principal{}, err
	}
	return principalFor(&user), nil
}

func principalFor(user *User) permission.Principal {
	return permission.Principal{
		Name:   user.Username,
		Grants: permission.ParseScopeString(user.Scopes),
	}
}
