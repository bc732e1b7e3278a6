package service

import (
	"context"
	"time"

	"healthathome/internal/entity"
	"healthathome/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

// Template identifies a lifecycle email. Each template is triggered at most
// once per logical transition.
type Template string

const (
	TemplateVerification  Template = "verification"
	TemplateApproval      Template = "approval"
	TemplateRejection     Template = "rejection"
	TemplatePasswordReset Template = "password_reset"
)

// Notifier delivers a template-keyed email to a principal. Failures are the
// notifier's problem: the triggering operation has already committed and
// never sees them.
type Notifier interface {
	Send(ctx context.Context, principal *entity.Principal, template Template, merge map[string]string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

// TokenSource issues opaque single-use tokens.
type TokenSource interface {
	Issue() (string, error)
}

type AccessTokenIssuer interface {
	IssueAccessToken(principal entity.Principal) (string, time.Duration, error)
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type HexTokenSource struct{}

func (HexTokenSource) Issue() (string, error) {
	return utils.GenerateToken()
}

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type JWTAccessIssuer struct {
	Manager *utils.JWTManager
}

func (j JWTAccessIssuer) IssueAccessToken(principal entity.Principal) (string, time.Duration, error) {
	if j.Manager == nil {
		return "", 0, utils.ErrInvalidToken
	}
	return j.Manager.IssueAccessToken(principal.ID.String(), string(principal.Kind), principal.Account.Role)
}
