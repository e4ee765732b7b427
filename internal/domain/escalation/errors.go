package escalation

import "errors"

var (
	ErrInvalidStatus        = errors.New("invalid escalation status")
	ErrInvalidOverallStatus = errors.New("invalid overall status")
	ErrInvalidAction        = errors.New("invalid token action")
	ErrInvalidLevel         = errors.New("invalid escalation level")

	ErrUnknownCompany = errors.New("unknown company")
	ErrNoRecipient    = errors.New("no recipient configured for level")

	ErrTokenUnknown    = errors.New("token is unknown")
	ErrTokenExpired    = errors.New("token is expired")
	ErrTokenConsumed   = errors.New("token was already used")
	ErrTokenSuperseded = errors.New("token was superseded by a newer link")
	ErrTokenMismatch   = errors.New("token does not belong to this inspection")
	ErrLevelMismatch   = errors.New("token level does not match the current escalation level")

	ErrInspectionTerminal = errors.New("inspection escalation is already resolved")
)

// IsStaleToken reports whether err belongs to the family of redemption
// failures that render the "link invalid or expired" page.
func IsStaleToken(err error) bool {
	for _, target := range []error{
		ErrTokenUnknown,
		ErrTokenExpired,
		ErrTokenConsumed,
		ErrTokenSuperseded,
		ErrTokenMismatch,
		ErrLevelMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
