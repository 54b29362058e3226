package service

import (
	"fmt"

	"github.com/satacare/sata-system/internal/core/ports"
)

const resetSubject = "Password reset | SATA"

// buildResetMessage renders the HTML and plain-text bodies of the reset
// email around the tokenized link.
func buildResetMessage(username, to, resetLink, from, fromName string) ports.MailMessage {
	preheader := "Reset your SATA password. The link expires in 15 minutes."

	html := fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:auto;padding:20px">
  <div style="display:none;max-height:0;overflow:hidden;opacity:0;color:transparent">%s</div>
  <h2 style="color:#1976d2;margin:0 0 16px">Reset your password</h2>
  <p style="margin:0 0 12px">Hello %s,</p>
  <p style="margin:0 0 16px">We received a request to reset your password. Click the button below to continue. This link is valid for 15 minutes.</p>
  <p style="text-align:center;margin:24px 0">
    <a href="%s" style="background:#1976d2;color:#fff;padding:12px 18px;border-radius:6px;text-decoration:none;display:inline-block">Reset password</a>
  </p>
  <p style="margin:0 0 12px">If you did not request this change, please ignore this email.</p>
  <hr style="margin:24px 0;border:none;border-top:1px solid #eee"/>
  <p style="font-size:12px;color:#666;margin:0">%s &middot; Care Facility Management &middot; Support: %s</p>
</div>`, preheader, username, resetLink, fromName, from)

	text := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your password. Open the link below (valid for 15 minutes):\n%s\n\nIf you did not request this change, please ignore this email.\n\n%s",
		username, resetLink, fromName)

	return ports.MailMessage{
		To:       to,
		Subject:  resetSubject,
		Text:     text,
		HTML:     html,
		From:     from,
		FromName: fromName,
	}
}
