// Package tracker records the user's application activity on listings:
// which jobs were applied to, where each one stands, and when it got there.
package tracker

import (
	"fmt"
	"strings"
)

// Status is one stage of an application. The set is flat: any status may
// follow any other, the user's pipeline is theirs to drive.
type Status string

const (
	StatusApplied            Status = "Applied"
	StatusNoResponse         Status = "No Response"
	StatusPhoneScreen        Status = "Phone Screen"
	StatusInterviewScheduled Status = "Interview Scheduled"
	StatusInterviewCompleted Status = "Interview Completed"
	StatusSecondInterview    Status = "Second Interview"
	StatusOfferReceived      Status = "Offer Received"
	StatusOfferAccepted      Status = "Offer Accepted"
	StatusOfferDeclined      Status = "Offer Declined"
	StatusRejected           Status = "Rejected"
	StatusWithdrawn          Status = "Withdrawn"
)

// AllStatuses lists every status in pipeline display order.
var AllStatuses = []Status{
	StatusApplied,
	StatusNoResponse,
	StatusPhoneScreen,
	StatusInterviewScheduled,
	StatusInterviewCompleted,
	StatusSecondInterview,
	StatusOfferReceived,
	StatusOfferAccepted,
	StatusOfferDeclined,
	StatusRejected,
	StatusWithdrawn,
}

// timestamped statuses mark concrete milestones; entering one records a
// timeline event. Applied and No Response are ambient states, not events.
var timestamped = map[Status]bool{
	StatusPhoneScreen:        true,
	StatusInterviewScheduled: true,
	StatusInterviewCompleted: true,
	StatusSecondInterview:    true,
	StatusOfferReceived:      true,
	StatusOfferAccepted:      true,
	StatusOfferDeclined:      true,
	StatusRejected:           true,
}

// ParseStatus converts a raw string into a Status, matching
// case-insensitively on the display name.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

// IsTimestamped reports whether entering the status records a timeline event.
func IsTimestamped(s Status) bool {
	return timestamped[s]
}
