package mailer

import "context"

// Mailer delivers account emails. Implementations are best-effort: callers
// log failures but never surface them as operation errors, so a flaky mail
// transport cannot block registration or reset initiation.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}
