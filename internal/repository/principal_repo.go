package repository

import (
	"context"
	"errors"

	"healthathome/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenKind string

const (
	TokenVerification TokenKind = "verification"
	TokenReset        TokenKind = "reset"
)

var (
	// ErrConflict is returned by ConditionalUpdate when the document no
	// longer matches the expected state.
	ErrConflict = errors.New("conditional update conflict")
	// ErrDuplicate is returned when a write violates a unique index
	// (email per kind, or a token collision).
	ErrDuplicate = errors.New("duplicate value")
)

// Account state columns usable in ConditionalUpdate expected/patch maps.
const (
	ColVerified           = "account_verified"
	ColVerificationToken  = "account_verification_token"
	ColFirstEmailSent     = "account_first_verification_email_sent"
	ColPasswordResetToken = "account_password_reset_token"
	ColActivationStep     = "account_activation_step"
	ColApprovalStatus     = "account_approval_status"
	ColRejectionReason    = "account_rejection_reason"
	ColAccountStatus      = "account_account_status"
	ColDispatchGeneration = "account_dispatch_generation"
	ColTokenIssuedAt      = "account_token_issued_at"
	ColPasswordHash       = "password_hash"
	ColProfile            = "profile"
)

type PrincipalRepository interface {
	Create(ctx context.Context, principal *entity.Principal) error
	FindByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (*entity.Principal, error)
	FindByEmail(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error)
	FindByToken(ctx context.Context, kind entity.Kind, tokenKind TokenKind, token string) (*entity.Principal, error)
	// ConditionalUpdate applies patch to the principal identified by kind
	// and id only if every expected column still holds its expected value.
	// It returns ErrConflict when no row matched.
	ConditionalUpdate(ctx context.Context, kind entity.Kind, id uuid.UUID, expected map[string]any, patch map[string]any) (*entity.Principal, error)
	List(ctx context.Context, kind entity.Kind, status entity.AccountStatus) ([]entity.Principal, error)
}

type principalRepository struct {
	db *gorm.DB
}

func NewPrincipalRepository(db *gorm.DB) PrincipalRepository {
	return &principalRepository{db: db}
}

func (r *principalRepository) Create(ctx context.Context, principal *entity.Principal) error {
	err := r.db.WithContext(ctx).Create(principal).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *principalRepository) FindByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (*entity.Principal, error) {
	var principal entity.Principal
	err := r.db.WithContext(ctx).
		Where("kind = ? AND id = ?", kind, id).
		First(&principal).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &principal, nil
}

func (r *principalRepository) FindByEmail(ctx context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	var principal entity.Principal
	err := r.db.WithContext(ctx).
		Where("kind = ? AND email = ?", kind, email).
		First(&principal).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &principal, nil
}

func (r *principalRepository) FindByToken(ctx context.Context, kind entity.Kind, tokenKind TokenKind, token string) (*entity.Principal, error) {
	if token == "" {
		return nil, nil
	}
	column := ColVerificationToken
	if tokenKind == TokenReset {
		column = ColPasswordResetToken
	}

	var principal entity.Principal
	err := r.db.WithContext(ctx).
		Where("kind = ? AND "+column+" = ?", kind, token).
		First(&principal).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &principal, nil
}

func (r *principalRepository) ConditionalUpdate(
	ctx context.Context,
	kind entity.Kind,
	id uuid.UUID,
	expected map[string]any,
	patch map[string]any,
) (*entity.Principal, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Principal{}).
		Where("kind = ? AND id = ?", kind, id)
	for column, value := range expected {
		query = query.Where(column+" = ?", value)
	}

	result := query.Updates(patch)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrConflict
	}
	return r.FindByID(ctx, kind, id)
}

func (r *principalRepository) List(ctx context.Context, kind entity.Kind, status entity.AccountStatus) ([]entity.Principal, error) {
	query := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at DESC")
	if status != "" {
		query = query.Where(ColAccountStatus+" = ?", status)
	}

	var principals []entity.Principal
	if err := query.Find(&principals).Error; err != nil {
		return nil, err
	}
	return principals, nil
}
