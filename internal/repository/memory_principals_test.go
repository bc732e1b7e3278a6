package repository

import (
	"context"
	"testing"

	"healthathome/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPrincipal(t *testing.T, repo *MemoryPrincipalsRepo, kind entity.Kind, email string, token string) *entity.Principal {
	t.Helper()
	principal := &entity.Principal{
		Kind:         kind,
		Email:        email,
		PasswordHash: "hash",
		Account: entity.Account{
			VerificationToken: token,
			ApprovalStatus:    entity.ApprovalPending,
			AccountStatus:     entity.AccountActive,
			Role:              kind.Role(),
		},
	}
	require.NoError(t, repo.Create(context.Background(), principal))
	return principal
}

func TestCreateEnforcesEmailUniquenessPerKind(t *testing.T) {
	repo := NewMemoryPrincipalsRepo()
	seedPrincipal(t, repo, entity.KindPatient, "pat@example.com", "t1")

	duplicate := &entity.Principal{Kind: entity.KindPatient, Email: "pat@example.com"}
	assert.ErrorIs(t, repo.Create(context.Background(), duplicate), ErrDuplicate)

	otherKind := &entity.Principal{Kind: entity.KindAdmin, Email: "pat@example.com"}
	assert.NoError(t, repo.Create(context.Background(), otherKind))
}

func TestCreateEnforcesTokenUniqueness(t *testing.T) {
	repo := NewMemoryPrincipalsRepo()
	seedPrincipal(t, repo, entity.KindPatient, "a@example.com", "same-token")

	clash := &entity.Principal{
		Kind:  entity.KindPatient,
		Email: "b@example.com",
		Account: entity.Account{
			VerificationToken: "same-token",
		},
	}
	assert.ErrorIs(t, repo.Create(context.Background(), clash), ErrDuplicate)

	// Uniqueness is global, not per kind, like the partial unique indexes.
	crossKind := &entity.Principal{
		Kind:  entity.KindAdmin,
		Email: "c@example.com",
		Account: entity.Account{
			VerificationToken: "same-token",
		},
	}
	assert.ErrorIs(t, repo.Create(context.Background(), crossKind), ErrDuplicate)
}

func TestConditionalUpdateAppliesWhenExpectedMatches(t *testing.T) {
	repo := NewMemoryPrincipalsRepo()
	principal := seedPrincipal(t, repo, entity.KindPractitioner, "doc@example.com", "t1")

	updated, err := repo.ConditionalUpdate(context.Background(), entity.KindPractitioner, principal.ID,
		map[string]any{ColApprovalStatus: entity.ApprovalPending},
		map[string]any{ColApprovalStatus: entity.ApprovalApproved})
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalApproved, updated.Account.ApprovalStatus)
}

func TestConditionalUpdateConflictsOnStaleExpectation(t *testing.T) {
	repo := NewMemoryPrincipalsRepo()
	principal := seedPrincipal(t, repo, entity.KindPractitioner, "doc@example.com", "t1")

	_, err := repo.ConditionalUpdate(context.Background(), entity.KindPractitioner, principal.ID,
		map[string]any{ColApprovalStatus: entity.ApprovalPending},
		map[string]any{ColApprovalStatus: entity.ApprovalApproved})
	require.NoError(t, err)

	_, err = repo.ConditionalUpdate(context.Background(), entity.KindPractitioner, principal.ID,
		map[string]any{ColApprovalStatus: entity.ApprovalPending},
		map[string]any{ColApprovalStatus: entity.ApprovalRejected})
	assert.ErrorIs(t, err, ErrConflict)

	current, err := repo.FindByID(context.Background(), entity.KindPractitioner, principal.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalApproved, current.Account.ApprovalStatus)
}

func TestConditionalUpdateUnknownPrincipal(t *testing.T) {
	repo := NewMemoryPrincipalsRepo()
	principal := seedPrincipal(t, repo, entity.KindPatient, "pat@example.com", "t1")

	// Wrong kind behaves like a missing document.
	_, err := repo.ConditionalUpdate(context.Background(), entity.KindAdmin, principal.ID,
		nil,
		map[string]any{ColAccountStatus: entity.AccountBlocked})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestFindByTokenIgnoresEmptyToken(t *testing.T) {
	repo := NewMemoryPrincipalsRepo()
	seedPrincipal(t, repo, entity.KindPatient, "pat@example.com", "")

	found, err := repo.FindByToken(context.Background(), entity.KindPatient, TokenVerification, "")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestConditionalUpdateRejectsTokenClash(t *testing.T) {
	repo := NewMemoryPrincipalsRepo()
	seedPrincipal(t, repo, entity.KindPatient, "a@example.com", "token-a")
	other := seedPrincipal(t, repo, entity.KindPatient, "b@example.com", "token-b")

	_, err := repo.ConditionalUpdate(context.Background(), entity.KindPatient, other.ID,
		nil,
		map[string]any{ColVerificationToken: "token-a"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
