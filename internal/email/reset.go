package email

import (
	"context"
	"fmt"
	"html"
	"time"
)

// PasswordResetNotifier composes the reset email and hands it to a Sender.
type PasswordResetNotifier struct {
	sender Sender
	ttl    time.Duration
}

// NewPasswordResetNotifier returns a notifier whose emails state that the
// link is valid for ttl.
func NewPasswordResetNotifier(sender Sender, ttl time.Duration) *PasswordResetNotifier {
	return &PasswordResetNotifier{sender: sender, ttl: ttl}
}

// SendPasswordResetEmail emails resetURL to the given address.
func (n *PasswordResetNotifier) SendPasswordResetEmail(ctx context.Context, to, resetURL string) error {
	link := html.EscapeString(resetURL)
	body := fmt.Sprintf(
		`<p>We received a request to reset your password.</p>`+
			`<p><a href="%s">Reset your password</a></p>`+
			`<p>This link expires in %s. If you did not request a reset, you can ignore this email.</p>`,
		link, expiryText(n.ttl),
	)
	if err := n.sender.Send(ctx, to, "Reset your password", body); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}

func expiryText(ttl time.Duration) string {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	switch {
	case minutes <= 1:
		return "1 minute"
	case minutes%60 == 0 && minutes >= 120:
		return fmt.Sprintf("%d hours", minutes/60)
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}
