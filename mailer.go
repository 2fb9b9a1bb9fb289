package auth

import "context"

// Mailer dispatches the password-reset notification. Mail delivery lives
// outside this package; the orchestrator only decides whether to trigger it.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email string, resetToken string) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, email string, resetToken string) error

// SendPasswordReset implements Mailer.
func (f MailerFunc) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, resetToken)
}

type noopMailer struct{}

func (noopMailer) SendPasswordReset(context.Context, string, string) error {
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}
