package escalation

import "testing"

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{
		"none", "level1_sent", "qm_approved", "qm_rejected",
		"level2_sent", "final_approved", "final_rejected",
	} {
		if _, err := ParseStatus(valid); err != nil {
			t.Fatalf("ParseStatus(%q) error = %v", valid, err)
		}
	}

	if _, err := ParseStatus("escalated"); err == nil {
		t.Fatal("ParseStatus() expected error for unknown status")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	cases := map[Status]bool{
		StatusNone:          false,
		StatusLevel1Sent:    false,
		StatusQMApproved:    true,
		StatusQMRejected:    false,
		StatusLevel2Sent:    false,
		StatusFinalApproved: true,
		StatusFinalRejected: true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestStatusExpectedLevel(t *testing.T) {
	cases := []struct {
		status Status
		level  int
		ok     bool
	}{
		{StatusNone, 0, false},
		{StatusLevel1Sent, 1, true},
		{StatusQMApproved, 0, false},
		{StatusQMRejected, 2, true},
		{StatusLevel2Sent, 2, true},
		{StatusFinalApproved, 0, false},
		{StatusFinalRejected, 0, false},
	}
	for _, tc := range cases {
		level, ok := tc.status.ExpectedLevel()
		if level != tc.level || ok != tc.ok {
			t.Fatalf("ExpectedLevel(%s) = (%d, %v), want (%d, %v)", tc.status, level, ok, tc.level, tc.ok)
		}
	}
}

func TestCanAdvanceIsMonotone(t *testing.T) {
	allowed := []struct {
		from Status
		to   Status
	}{
		{StatusNone, StatusLevel1Sent},
		{StatusLevel1Sent, StatusLevel1Sent},
		{StatusLevel1Sent, StatusQMApproved},
		{StatusLevel1Sent, StatusQMRejected},
		{StatusQMRejected, StatusLevel2Sent},
		{StatusLevel2Sent, StatusLevel2Sent},
		{StatusLevel2Sent, StatusFinalApproved},
		{StatusLevel2Sent, StatusFinalRejected},
	}
	for _, tc := range allowed {
		if !CanAdvance(tc.from, tc.to) {
			t.Fatalf("CanAdvance(%s, %s) = false, want true", tc.from, tc.to)
		}
	}

	// No transition ever leaves a terminal state or walks backwards.
	for from := range statusOrder {
		for to := range statusOrder {
			if !CanAdvance(from, to) {
				continue
			}
			if from.IsTerminal() {
				t.Fatalf("CanAdvance(%s, %s) allowed out of a terminal state", from, to)
			}
			if statusOrder[to] < statusOrder[from] {
				t.Fatalf("CanAdvance(%s, %s) moves the workflow backwards", from, to)
			}
		}
	}
}

func TestNextStatus(t *testing.T) {
	cases := []struct {
		action Action
		level  int
		want   Status
	}{
		{ActionApprove, 1, StatusQMApproved},
		{ActionReject, 1, StatusQMRejected},
		{ActionApprove, 2, StatusFinalApproved},
		{ActionReject, 2, StatusFinalRejected},
	}
	for _, tc := range cases {
		got, err := NextStatus(tc.action, tc.level)
		if err != nil {
			t.Fatalf("NextStatus(%s, %d) error = %v", tc.action, tc.level, err)
		}
		if got != tc.want {
			t.Fatalf("NextStatus(%s, %d) = %s, want %s", tc.action, tc.level, got, tc.want)
		}
	}

	if _, err := NextStatus(ActionApprove, 3); err == nil {
		t.Fatal("NextStatus() expected error for level 3")
	}
}
