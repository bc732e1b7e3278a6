package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"healthathome/internal/entity"
	"healthathome/internal/repository"
	"healthathome/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// fallbackDummyHash equalizes login timing when the configured hasher cannot
// produce a dummy hash of its own.
const fallbackDummyHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

// tokenRetries bounds the retry loop on token unique-index collisions.
const tokenRetries = 3

type RegisterInput struct {
	Email    string
	Password string
	Profile  json.RawMessage
}

type UpdateInput struct {
	Profile        json.RawMessage
	Password       string
	ActivationStep *int
}

type LoginResult struct {
	AccessToken string
	ExpiresIn   int64
	Principal   *entity.Principal
}

// AccountService owns every lifecycle transition of a principal's account.
// Each operation is compute -> conditional update -> dispatch: the email
// side effect runs only after the state change is durably persisted, and a
// delivery failure never fails the operation.
type AccountService struct {
	principals repository.PrincipalRepository
	dispatcher *Dispatcher
	hasher     PasswordHasher
	tokens     TokenSource
	access     AccessTokenIssuer
	clock      Clock
	logger     *logrus.Logger

	// dummyHash is produced by the configured hasher at construction so the
	// timing-equalization comparison on unknown emails costs the same as a
	// real verification at the configured cost.
	dummyHash string
}

func NewAccountService(
	principals repository.PrincipalRepository,
	dispatcher *Dispatcher,
	hasher PasswordHasher,
	tokens TokenSource,
	access AccessTokenIssuer,
	clock Clock,
	logger *logrus.Logger,
) *AccountService {
	if tokens == nil {
		tokens = HexTokenSource{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	s := &AccountService{
		principals: principals,
		dispatcher: dispatcher,
		hasher:     hasher,
		tokens:     tokens,
		access:     access,
		clock:      clock,
		logger:     logger,
	}
	if hasher != nil {
		if hash, err := hasher.Hash("unknown-principal-dummy"); err == nil {
			s.dummyHash = hash
		}
	}
	if s.dummyHash == "" {
		s.dummyHash = fallbackDummyHash
	}
	return s
}

// Register creates a principal with a fresh verification token and schedules
// the initial verification email exactly once. The first-email claim is a
// compare-and-swap on firstVerificationEmailSent, so a retried registration
// cannot double-send.
func (s *AccountService) Register(ctx context.Context, kind entity.Kind, input RegisterInput) (*entity.Principal, error) {
	email := utils.NormalizeEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrValidation
	}

	existing, err := s.principals.FindByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	var principal *entity.Principal
	for attempt := 0; attempt < tokenRetries; attempt++ {
		token, err := s.tokens.Issue()
		if err != nil {
			return nil, err
		}
		now := s.clock.Now()
		candidate := &entity.Principal{
			Kind:         kind,
			Email:        email,
			PasswordHash: hash,
			Profile:      datatypes.JSON(input.Profile),
			Account: entity.Account{
				Verified:          false,
				VerificationToken: token,
				ActivationStep:    0,
				ApprovalStatus:    entity.ApprovalPending,
				AccountStatus:     entity.AccountActive,
				Role:              kind.Role(),
				TokenIssuedAt:     &now,
			},
		}
		err = s.principals.Create(ctx, candidate)
		if err == nil {
			principal = candidate
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		// A duplicate can be the email or a token collision. Re-check the
		// email; a token collision just retries with a fresh token.
		existing, findErr := s.principals.FindByEmail(ctx, kind, email)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil {
			return nil, ErrEmailTaken
		}
	}
	if principal == nil {
		return nil, ErrConflict
	}

	claimed, err := s.principals.ConditionalUpdate(ctx, kind, principal.ID,
		map[string]any{repository.ColFirstEmailSent: false},
		map[string]any{
			repository.ColFirstEmailSent:     true,
			repository.ColDispatchGeneration: principal.Account.DispatchGeneration + 1,
		})
	if err == nil {
		s.dispatcher.Dispatch(claimed, TemplateVerification, map[string]string{
			"verificationToken": claimed.Account.VerificationToken,
		})
		return claimed, nil
	}
	if errors.Is(err, repository.ErrConflict) {
		// Another request already claimed the initial email.
		return principal, nil
	}
	return nil, err
}

// VerifyEmail consumes a verification token: verified flips to true and the
// token is cleared in the same conditional update.
func (s *AccountService) VerifyEmail(ctx context.Context, kind entity.Kind, token string) (*entity.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrValidation
	}

	principal, err := s.principals.FindByToken(ctx, kind, repository.TokenVerification, token)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, ErrNotFound
	}
	if principal.Account.Verified {
		return nil, ErrInvalidState
	}

	updated, err := s.principals.ConditionalUpdate(ctx, kind, principal.ID,
		map[string]any{
			repository.ColVerified:          false,
			repository.ColVerificationToken: token,
		},
		map[string]any{
			repository.ColVerified:          true,
			repository.ColVerificationToken: "",
			repository.ColTokenIssuedAt:     nil,
		})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	s.log().WithFields(logrus.Fields{"principal": updated.ID, "kind": kind}).Info("email verified")
	return updated, nil
}

// ResendVerification discards the previous verification token, issues a new
// one and re-sends the verification email. Already-verified accounts are
// rejected with a single InvalidState error.
func (s *AccountService) ResendVerification(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	principal, err := s.findByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	if principal.Account.Verified {
		return nil, ErrInvalidState
	}

	for attempt := 0; attempt < tokenRetries; attempt++ {
		token, err := s.tokens.Issue()
		if err != nil {
			return nil, err
		}
		updated, err := s.principals.ConditionalUpdate(ctx, kind, principal.ID,
			map[string]any{
				repository.ColVerified:          false,
				repository.ColVerificationToken: principal.Account.VerificationToken,
			},
			map[string]any{
				repository.ColVerificationToken:  token,
				repository.ColTokenIssuedAt:      s.clock.Now(),
				repository.ColDispatchGeneration: principal.Account.DispatchGeneration + 1,
			})
		if err == nil {
			s.dispatcher.Dispatch(updated, TemplateVerification, map[string]string{
				"verificationToken": token,
			})
			return updated, nil
		}
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return nil, ErrConflict
}

// Approve moves a pending account to approved and sends the approval email.
func (s *AccountService) Approve(ctx context.Context, kind entity.Kind, id uuid.UUID) (*entity.Principal, error) {
	principal, err := s.findByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if principal.Account.ApprovalStatus != entity.ApprovalPending {
		return nil, ErrInvalidState
	}

	updated, err := s.principals.ConditionalUpdate(ctx, kind, id,
		map[string]any{repository.ColApprovalStatus: entity.ApprovalPending},
		map[string]any{
			repository.ColApprovalStatus:     entity.ApprovalApproved,
			repository.ColDispatchGeneration: principal.Account.DispatchGeneration + 1,
		})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(updated, TemplateApproval, nil)
	return updated, nil
}

// Reject moves a pending account to rejected, records the mandatory reason,
// resets the onboarding progress and sends the rejection email.
func (s *AccountService) Reject(ctx context.Context, kind entity.Kind, id uuid.UUID, reason string) (*entity.Principal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrValidation
	}

	principal, err := s.findByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if principal.Account.ApprovalStatus != entity.ApprovalPending {
		return nil, ErrInvalidState
	}

	updated, err := s.principals.ConditionalUpdate(ctx, kind, id,
		map[string]any{repository.ColApprovalStatus: entity.ApprovalPending},
		map[string]any{
			repository.ColApprovalStatus:     entity.ApprovalRejected,
			repository.ColRejectionReason:    reason,
			repository.ColActivationStep:     0,
			repository.ColDispatchGeneration: principal.Account.DispatchGeneration + 1,
		})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(updated, TemplateRejection, map[string]string{
		"rejectionReason": reason,
	})
	return updated, nil
}

// Block sets accountStatus to blocked. Approval status is an independent
// axis and is left untouched.
func (s *AccountService) Block(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	principal, err := s.findByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	if principal.Account.AccountStatus == entity.AccountDeleted {
		return nil, ErrInvalidState
	}
	return s.setAccountStatus(ctx, kind, principal, entity.AccountBlocked)
}

// Reactivate sets accountStatus back to active. Deleted accounts are
// reactivatable: delete is a status value, not row removal.
func (s *AccountService) Reactivate(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	principal, err := s.findByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	if principal.Account.AccountStatus == entity.AccountActive {
		return nil, ErrInvalidState
	}
	return s.setAccountStatus(ctx, kind, principal, entity.AccountActive)
}

func (s *AccountService) DeleteByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (*entity.Principal, error) {
	principal, err := s.findByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.setAccountStatus(ctx, kind, principal, entity.AccountDeleted)
}

func (s *AccountService) DeleteByEmail(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	principal, err := s.findByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	return s.setAccountStatus(ctx, kind, principal, entity.AccountDeleted)
}

// ForgotPassword issues a password reset token and sends the reset email.
// The token is independent of verification state.
func (s *AccountService) ForgotPassword(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	principal, err := s.findByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < tokenRetries; attempt++ {
		token, err := s.tokens.Issue()
		if err != nil {
			return nil, err
		}
		updated, err := s.principals.ConditionalUpdate(ctx, kind, principal.ID,
			map[string]any{
				repository.ColPasswordResetToken: principal.Account.PasswordResetToken,
			},
			map[string]any{
				repository.ColPasswordResetToken: token,
				repository.ColTokenIssuedAt:      s.clock.Now(),
				repository.ColDispatchGeneration: principal.Account.DispatchGeneration + 1,
			})
		if err == nil {
			s.dispatcher.Dispatch(updated, TemplatePasswordReset, map[string]string{
				"resetToken": token,
			})
			return updated, nil
		}
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return nil, ErrConflict
}

// ResetPassword consumes a reset token: the hash update and the token clear
// commit in one conditional update, so the token is single-use.
func (s *AccountService) ResetPassword(ctx context.Context, kind entity.Kind, token string, newPassword string) (*entity.Principal, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(newPassword) == "" {
		return nil, ErrValidation
	}

	principal, err := s.principals.FindByToken(ctx, kind, repository.TokenReset, token)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, ErrNotFound
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	updated, err := s.principals.ConditionalUpdate(ctx, kind, principal.ID,
		map[string]any{repository.ColPasswordResetToken: token},
		map[string]any{
			repository.ColPasswordHash:       hash,
			repository.ColPasswordResetToken: "",
			repository.ColTokenIssuedAt:      nil,
		})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	s.log().WithFields(logrus.Fields{"principal": updated.ID, "kind": kind}).Info("password reset")
	return updated, nil
}

// Login checks credentials and issues an access token. The response is
// identical whether the email or the password was wrong.
func (s *AccountService) Login(ctx context.Context, kind entity.Kind, email string, password string) (*LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrValidation
	}

	principal, err := s.principals.FindByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		// Equalize timing against a real comparison at the configured cost.
		_ = s.hasher.Verify(s.dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(principal.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if principal.Account.AccountStatus != entity.AccountActive {
		return nil, ErrInvalidState
	}

	accessToken, ttl, err := s.access.IssueAccessToken(*principal)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(ttl.Seconds()),
		Principal:   principal,
	}, nil
}

// UpdateByID replaces the opaque profile and optionally the password or
// activation step. Lifecycle fields are not reachable through updates.
func (s *AccountService) UpdateByID(ctx context.Context, kind entity.Kind, id uuid.UUID, input UpdateInput) (*entity.Principal, error) {
	principal, err := s.findByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, kind, principal, input)
}

func (s *AccountService) UpdateByEmail(ctx context.Context, kind entity.Kind, email string, input UpdateInput) (*entity.Principal, error) {
	principal, err := s.findByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, kind, principal, input)
}

func (s *AccountService) GetByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (*entity.Principal, error) {
	return s.findByID(ctx, kind, id)
}

func (s *AccountService) GetByEmail(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	return s.findByEmail(ctx, kind, email)
}

func (s *AccountService) ExistsByEmail(ctx context.Context, kind entity.Kind, email string) (bool, error) {
	principal, err := s.principals.FindByEmail(ctx, kind, utils.NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return principal != nil, nil
}

func (s *AccountService) List(ctx context.Context, kind entity.Kind, status entity.AccountStatus) ([]entity.Principal, error) {
	return s.principals.List(ctx, kind, status)
}

func (s *AccountService) applyUpdate(ctx context.Context, kind entity.Kind, principal *entity.Principal, input UpdateInput) (*entity.Principal, error) {
	patch := map[string]any{}
	if len(input.Profile) > 0 {
		patch[repository.ColProfile] = datatypes.JSON(input.Profile)
	}
	if input.ActivationStep != nil {
		patch[repository.ColActivationStep] = *input.ActivationStep
	}
	if input.Password != "" {
		// Re-hash only when the incoming plaintext actually differs from
		// the stored credential.
		if !s.hasher.Verify(principal.PasswordHash, input.Password) {
			hash, err := s.hasher.Hash(input.Password)
			if err != nil {
				return nil, err
			}
			patch[repository.ColPasswordHash] = hash
		}
	}
	if len(patch) == 0 {
		return principal, nil
	}

	updated, err := s.principals.ConditionalUpdate(ctx, kind, principal.ID, nil, patch)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *AccountService) setAccountStatus(ctx context.Context, kind entity.Kind, principal *entity.Principal, status entity.AccountStatus) (*entity.Principal, error) {
	updated, err := s.principals.ConditionalUpdate(ctx, kind, principal.ID,
		map[string]any{repository.ColAccountStatus: principal.Account.AccountStatus},
		map[string]any{repository.ColAccountStatus: status})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *AccountService) findByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (*entity.Principal, error) {
	principal, err := s.principals.FindByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, ErrNotFound
	}
	return principal, nil
}

func (s *AccountService) findByEmail(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	principal, err := s.principals.FindByEmail(ctx, kind, utils.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, ErrNotFound
	}
	return principal, nil
}

func (s *AccountService) log() *logrus.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logrus.StandardLogger()
}
