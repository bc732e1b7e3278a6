package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"healthathome/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryPrincipalsRepo is an in-process PrincipalRepository used by tests
// and DB-less runs. It enforces the same uniqueness rules as the Postgres
// schema and the same compare-and-swap semantics for ConditionalUpdate.
type MemoryPrincipalsRepo struct {
	mu         sync.RWMutex
	principals map[uuid.UUID]entity.Principal
}

func NewMemoryPrincipalsRepo() *MemoryPrincipalsRepo {
	return &MemoryPrincipalsRepo{
		principals: map[uuid.UUID]entity.Principal{},
	}
}

func (r *MemoryPrincipalsRepo) Create(_ context.Context, principal *entity.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.principals {
		if existing.Kind == principal.Kind && existing.Email == principal.Email {
			return ErrDuplicate
		}
		// Token uniqueness is global, matching the partial unique indexes.
		if tokenClash(&existing, &principal.Account) {
			return ErrDuplicate
		}
	}

	if principal.ID == uuid.Nil {
		principal.ID = uuid.New()
	}
	now := time.Now()
	principal.CreatedAt = now
	principal.UpdatedAt = now
	r.principals[principal.ID] = *principal
	return nil
}

func (r *MemoryPrincipalsRepo) FindByID(_ context.Context, kind entity.Kind, id uuid.UUID) (*entity.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	principal, ok := r.principals[id]
	if !ok || principal.Kind != kind {
		return nil, nil
	}
	copied := principal
	return &copied, nil
}

func (r *MemoryPrincipalsRepo) FindByEmail(_ context.Context, kind entity.Kind, email string) (*entity.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, principal := range r.principals {
		if principal.Kind == kind && principal.Email == email {
			copied := principal
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryPrincipalsRepo) FindByToken(_ context.Context, kind entity.Kind, tokenKind TokenKind, token string) (*entity.Principal, error) {
	if token == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, principal := range r.principals {
		if principal.Kind != kind {
			continue
		}
		current := principal.Account.VerificationToken
		if tokenKind == TokenReset {
			current = principal.Account.PasswordResetToken
		}
		if current == token {
			copied := principal
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryPrincipalsRepo) ConditionalUpdate(
	_ context.Context,
	kind entity.Kind,
	id uuid.UUID,
	expected map[string]any,
	patch map[string]any,
) (*entity.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	principal, ok := r.principals[id]
	if !ok || principal.Kind != kind {
		return nil, ErrConflict
	}

	for column, value := range expected {
		current, err := columnValue(&principal, column)
		if err != nil {
			return nil, err
		}
		if fmt.Sprintf("%v", current) != fmt.Sprintf("%v", value) {
			return nil, ErrConflict
		}
	}

	updated := principal
	for column, value := range patch {
		if err := setColumn(&updated, column, value); err != nil {
			return nil, err
		}
	}

	for _, other := range r.principals {
		if other.ID == updated.ID {
			continue
		}
		if tokenClash(&other, &updated.Account) {
			return nil, ErrDuplicate
		}
	}

	updated.UpdatedAt = time.Now()
	r.principals[id] = updated
	copied := updated
	return &copied, nil
}

func (r *MemoryPrincipalsRepo) List(_ context.Context, kind entity.Kind, status entity.AccountStatus) ([]entity.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]entity.Principal, 0)
	for _, principal := range r.principals {
		if principal.Kind != kind {
			continue
		}
		if status != "" && principal.Account.AccountStatus != status {
			continue
		}
		results = append(results, principal)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func tokenClash(existing *entity.Principal, account *entity.Account) bool {
	if account.VerificationToken != "" && existing.Account.VerificationToken == account.VerificationToken {
		return true
	}
	if account.PasswordResetToken != "" && existing.Account.PasswordResetToken == account.PasswordResetToken {
		return true
	}
	return false
}

func columnValue(principal *entity.Principal, column string) (any, error) {
	switch column {
	case ColVerified:
		return principal.Account.Verified, nil
	case ColVerificationToken:
		return principal.Account.VerificationToken, nil
	case ColFirstEmailSent:
		return principal.Account.FirstVerificationEmailSent, nil
	case ColPasswordResetToken:
		return principal.Account.PasswordResetToken, nil
	case ColActivationStep:
		return principal.Account.ActivationStep, nil
	case ColApprovalStatus:
		return principal.Account.ApprovalStatus, nil
	case ColRejectionReason:
		return principal.Account.RejectionReason, nil
	case ColAccountStatus:
		return principal.Account.AccountStatus, nil
	case ColDispatchGeneration:
		return principal.Account.DispatchGeneration, nil
	case ColPasswordHash:
		return principal.PasswordHash, nil
	}
	return nil, fmt.Errorf("unsupported column %q", column)
}

func setColumn(principal *entity.Principal, column string, value any) error {
	switch column {
	case ColVerified:
		principal.Account.Verified = value.(bool)
	case ColVerificationToken:
		principal.Account.VerificationToken = value.(string)
	case ColFirstEmailSent:
		principal.Account.FirstVerificationEmailSent = value.(bool)
	case ColPasswordResetToken:
		principal.Account.PasswordResetToken = value.(string)
	case ColActivationStep:
		principal.Account.ActivationStep = value.(int)
	case ColApprovalStatus:
		principal.Account.ApprovalStatus = value.(entity.ApprovalStatus)
	case ColRejectionReason:
		principal.Account.RejectionReason = value.(string)
	case ColAccountStatus:
		principal.Account.AccountStatus = value.(entity.AccountStatus)
	case ColDispatchGeneration:
		principal.Account.DispatchGeneration = value.(int64)
	case ColTokenIssuedAt:
		if value == nil {
			principal.Account.TokenIssuedAt = nil
		} else {
			issuedAt := value.(time.Time)
			principal.Account.TokenIssuedAt = &issuedAt
		}
	case ColPasswordHash:
		principal.PasswordHash = value.(string)
	case ColProfile:
		principal.Profile = value.(datatypes.JSON)
	default:
		return fmt.Errorf("unsupported column %q", column)
	}
	return nil
}
