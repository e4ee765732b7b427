package escalation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"labgate/internal/errs"
)

// Action is the decision a token authorizes.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, raw)
}

// NewTokenValue returns a 128-bit random value, hex encoded. Possession of
// the value is the sole authorization for the decision it carries.
func NewTokenValue() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errs.Wrap(err, "read token entropy")
	}
	return hex.EncodeToString(buf), nil
}

// TokenState is the redemption-relevant view of a stored action token.
type TokenState struct {
	InspectionID string
	Action       Action
	Level        int
	ExpiresAt    time.Time
	Consumed     bool
	Superseded   bool
}

// Validate checks a redemption attempt against the token and the
// inspection's current escalation status. It mutates nothing; the caller
// must still consume the token conditionally to win any race.
func (t TokenState) Validate(now time.Time, inspectionID string, current Status) error {
	if t.InspectionID != inspectionID {
		return ErrTokenMismatch
	}
	if t.Superseded {
		return ErrTokenSuperseded
	}
	if t.Consumed {
		return ErrTokenConsumed
	}
	if !now.Before(t.ExpiresAt) {
		return ErrTokenExpired
	}

	if current.IsTerminal() {
		return ErrInspectionTerminal
	}
	expected, ok := current.ExpectedLevel()
	if !ok || expected != t.Level {
		return ErrLevelMismatch
	}
	return nil
}

// NextStatus maps a validated decision to the resulting escalation status.
func NextStatus(action Action, level int) (Status, error) {
	switch {
	case level == 1 && action == ActionApprove:
		return StatusQMApproved, nil
	case level == 1 && action == ActionReject:
		return StatusQMRejected, nil
	case level == 2 && action == ActionApprove:
		return StatusFinalApproved, nil
	case level == 2 && action == ActionReject:
		return StatusFinalRejected, nil
	}
	return "", fmt.Errorf("%w: action %q level %d", ErrInvalidLevel, action, level)
}
