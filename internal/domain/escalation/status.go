package escalation

import "fmt"

// Status tracks where an inspection sits in the two-level approval chain.
// It only ever moves forward; terminal states accept no further decisions.
type Status string

const (
	StatusNone          Status = "none"
	StatusLevel1Sent    Status = "level1_sent"
	StatusQMApproved    Status = "qm_approved"
	StatusQMRejected    Status = "qm_rejected"
	StatusLevel2Sent    Status = "level2_sent"
	StatusFinalApproved Status = "final_approved"
	StatusFinalRejected Status = "final_rejected"
)

var statusOrder = map[Status]int{
	StatusNone:          0,
	StatusLevel1Sent:    1,
	StatusQMApproved:    2,
	StatusQMRejected:    2,
	StatusLevel2Sent:    3,
	StatusFinalApproved: 4,
	StatusFinalRejected: 4,
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := statusOrder[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// IsTerminal reports whether no further decision may be honored.
// A quality-manager approval ends the workflow; a rejection moves it up.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusQMApproved, StatusFinalApproved, StatusFinalRejected:
		return true
	}
	return false
}

// ExpectedLevel returns the escalation level whose tokens are currently
// redeemable. Tokens for any other level are stale.
func (s Status) ExpectedLevel() (int, bool) {
	switch s {
	case StatusLevel1Sent:
		return 1, true
	case StatusQMRejected, StatusLevel2Sent:
		return 2, true
	}
	return 0, false
}

var allowedTransitions = map[Status][]Status{
	StatusNone:       {StatusLevel1Sent},
	StatusLevel1Sent: {StatusLevel1Sent, StatusQMApproved, StatusQMRejected},
	StatusQMRejected: {StatusLevel2Sent, StatusFinalApproved, StatusFinalRejected},
	StatusLevel2Sent: {StatusLevel2Sent, StatusFinalApproved, StatusFinalRejected},
}

// CanAdvance reports whether the workflow may move from one status to the
// next. Re-sending the current level's notification is a self-transition.
func CanAdvance(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OverallStatus is the lab verdict on the inspection itself. The escalation
// chain may override a fail to a pass, never the other way around.
type OverallStatus string

const (
	OverallPass OverallStatus = "pass"
	OverallFail OverallStatus = "fail"
)

func ParseOverallStatus(raw string) (OverallStatus, error) {
	switch OverallStatus(raw) {
	case OverallPass:
		return OverallPass, nil
	case OverallFail:
		return OverallFail, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOverallStatus, raw)
}
