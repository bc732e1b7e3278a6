package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindPatient      Kind = "patient"
	KindPractitioner Kind = "practitioner"
	KindAdmin        Kind = "admin"
)

// Role is the fixed role string assigned to an account at creation.
func (k Kind) Role() string {
	return string(k)
}

func (k Kind) Valid() bool {
	switch k {
	case KindPatient, KindPractitioner, KindAdmin:
		return true
	}
	return false
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type AccountStatus string

const (
	AccountActive  AccountStatus = "active"
	AccountBlocked AccountStatus = "blocked"
	AccountDeleted AccountStatus = "deleted"
)

// Account is the lifecycle and security sub-entity embedded in every
// Principal. VerificationToken is non-empty only while Verified is false;
// PasswordResetToken is non-empty only between issuance and the next
// successful password change.
type Account struct {
	Verified bool `gorm:"default:false;not null"`
	// Live tokens are unique across all principals; the partial predicate
	// exempts the cleared-token empty string.
	VerificationToken          string `gorm:"type:varchar(64);uniqueIndex:idx_principals_verification_token,where:account_verification_token <> '';default:''"`
	FirstVerificationEmailSent bool   `gorm:"default:false;not null"`
	PasswordResetToken         string `gorm:"type:varchar(64);uniqueIndex:idx_principals_password_reset_token,where:account_password_reset_token <> '';default:''"`
	ActivationStep             int    `gorm:"default:0;not null"`

	ApprovalStatus  ApprovalStatus `gorm:"type:varchar(16);default:'pending';not null"`
	RejectionReason string         `gorm:"default:''"`

	AccountStatus AccountStatus `gorm:"type:varchar(16);default:'active';not null"`
	Role          string        `gorm:"type:varchar(32);not null"`

	// DispatchGeneration increases with every email-triggering transition,
	// inside the same conditional update, so a retried mutation cannot
	// trigger the same email twice.
	DispatchGeneration int64 `gorm:"default:0;not null"`

	// TokenIssuedAt records when the most recent verification or reset
	// token was issued. Lookups do not enforce a TTL yet.
	TokenIssuedAt *time.Time
}

// Principal is a patient, practitioner or admin identity record. All three
// kinds share one shape; Profile holds the kind-specific attributes and is
// opaque to the lifecycle logic.
type Principal struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Kind         Kind      `gorm:"type:varchar(16);not null;uniqueIndex:idx_principals_kind_email,priority:1"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_principals_kind_email,priority:2"`
	PasswordHash string    `gorm:"type:text;not null"`
	Profile      datatypes.JSON
	Account      Account `gorm:"embedded;embeddedPrefix:account_"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
