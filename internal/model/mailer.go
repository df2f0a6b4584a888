package model

import "context"

// Mailer delivers account mail. Calls are fire-and-forget from the auth
// core's perspective: a delivery failure never rolls back the operation
// that triggered it.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, username, token string) error
	SendPasswordReset(ctx context.Context, email, username, token string) error
}
