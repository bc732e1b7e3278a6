package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"healthathome/internal/entity"

	"github.com/resend/resend-go/v2"
)

// ResendNotifier delivers lifecycle emails through the Resend API, one
// template per transition kind, with merge fields interpolated into the
// message body.
type ResendNotifier struct {
	Client      *resend.Client
	From        string
	FrontendURL string
}

func NewResendNotifier(apiKey string, from string, frontendURL string) *ResendNotifier {
	if strings.TrimSpace(apiKey) == "" {
		return &ResendNotifier{}
	}
	return &ResendNotifier{
		Client:      resend.NewClient(apiKey),
		From:        from,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (n *ResendNotifier) Send(ctx context.Context, principal *entity.Principal, template Template, merge map[string]string) error {
	if n.Client == nil {
		return errors.New("notifier not configured")
	}

	subject, html, text := n.compose(principal, template, merge)
	if subject == "" {
		return fmt.Errorf("unknown template %q", template)
	}

	params := &resend.SendEmailRequest{
		From:    n.From,
		To:      []string{principal.Email},
		Subject: subject,
		Html:    html,
		Text:    text,
	}
	if _, err := n.Client.Emails.Send(params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func (n *ResendNotifier) compose(principal *entity.Principal, template Template, merge map[string]string) (string, string, string) {
	switch template {
	case TemplateVerification:
		link := n.link(verificationPath(principal.Kind), merge["verificationToken"])
		subject := "Health at Home Email Verification"
		html := fmt.Sprintf(
			"<h1>Health at Home Email Verification</h1>"+
				"<p>You've just signed up for a Health at Home %s account with this email.</p>"+
				"<p>Click this link to verify your email and continue with registering.</p>"+
				"<p><a href=%q>Verify</a></p>"+
				"<p>Having trouble? Copy and paste this link into your browser:</p><p>%s</p>",
			principal.Kind, link, link)
		return subject, html, "Verify your email: " + link
	case TemplateApproval:
		subject := "Health at Home Account Approved"
		html := "<h1>Your account has been approved</h1>" +
			"<p>You can now log in and continue using Health at Home.</p>"
		return subject, html, "Your Health at Home account has been approved."
	case TemplateRejection:
		reason := merge["rejectionReason"]
		subject := "Health at Home Account Review"
		html := fmt.Sprintf(
			"<h1>Your account could not be approved</h1><p>Reason: %s</p>"+
				"<p>Please update your details and try again.</p>", reason)
		return subject, html, "Your account could not be approved. Reason: " + reason
	case TemplatePasswordReset:
		link := n.link("/reset-password", merge["resetToken"])
		subject := "Health at Home Password Reset"
		html := fmt.Sprintf(
			"<h1>Password reset</h1><p>Click this link to choose a new password.</p>"+
				"<p><a href=%q>Reset Password</a></p>", link)
		return subject, html, "Reset your password: " + link
	}
	return "", "", ""
}

func (n *ResendNotifier) link(path string, token string) string {
	if n.FrontendURL == "" {
		return token
	}
	return fmt.Sprintf("%s%s/%s", n.FrontendURL, path, token)
}

func verificationPath(kind entity.Kind) string {
	switch kind {
	case entity.KindPractitioner:
		return "/verify-practitioner"
	case entity.KindAdmin:
		return "/verify-admin"
	default:
		return "/verify"
	}
}
