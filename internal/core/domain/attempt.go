package domain

import "time"

// Login attempt outcomes recorded for the security audit trail.
const (
	AttemptReasonBadPassword = "bad_password"
	AttemptReasonNoAccount   = "no_account"
	AttemptReasonLocked      = "locked"
	AttemptReasonBanned      = "banned"
	AttemptReasonInactive    = "inactive"
)

// LoginAttempt is an immutable audit row. It is written best-effort after
// the authentication decision and is never read back on the hot path; the
// store expires rows with a TTL index.
type LoginAttempt struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
