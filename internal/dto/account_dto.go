package dto

import (
	"encoding/json"
	"time"

	"healthathome/internal/entity"
)

type RegisterRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Profile  json.RawMessage `json:"profile" validate:"omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

type PasswordForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type UpdateRequest struct {
	Profile        json.RawMessage `json:"profile" validate:"omitempty"`
	Password       string          `json:"password" validate:"omitempty,min=8"`
	ActivationStep *int            `json:"activation_step" validate:"omitempty,min=0"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type AccountResponse struct {
	Verified        bool   `json:"verified"`
	ActivationStep  int    `json:"activation_step"`
	ApprovalStatus  string `json:"approval_status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	AccountStatus   string `json:"account_status"`
	Role            string `json:"role"`
}

type PrincipalResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Email     string          `json:"email"`
	Profile   json.RawMessage `json:"profile,omitempty"`
	Account   AccountResponse `json:"account"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PrincipalResponseFromEntity never exposes the password hash or the live
// verification/reset tokens.
func PrincipalResponseFromEntity(principal *entity.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:      principal.ID.String(),
		Kind:    string(principal.Kind),
		Email:   principal.Email,
		Profile: json.RawMessage(principal.Profile),
		Account: AccountResponse{
			Verified:        principal.Account.Verified,
			ActivationStep:  principal.Account.ActivationStep,
			ApprovalStatus:  string(principal.Account.ApprovalStatus),
			RejectionReason: principal.Account.RejectionReason,
			AccountStatus:   string(principal.Account.AccountStatus),
			Role:            principal.Account.Role,
		},
		CreatedAt: principal.CreatedAt,
		UpdatedAt: principal.UpdatedAt,
	}
}

func PrincipalResponsesFromEntities(principals []entity.Principal) []PrincipalResponse {
	responses := make([]PrincipalResponse, 0, len(principals))
	for i := range principals {
		responses = append(responses, PrincipalResponseFromEntity(&principals[i]))
	}
	return responses
}
