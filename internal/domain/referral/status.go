package referral

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusNewLead         Status = "New Lead"
	StatusPaired          Status = "Paired"
	StatusInCommunication Status = "In Communication"
	StatusShowingHomes    Status = "Showing Homes"
	StatusUnderContract   Status = "Under Contract"
	StatusClosed          Status = "Closed"
	StatusLost            Status = "Lost"
	StatusTerminated      Status = "Terminated"
)

// Statuses lists the lifecycle in pipeline order.
var Statuses = []Status{
	StatusNewLead,
	StatusPaired,
	StatusInCommunication,
	StatusShowingHomes,
	StatusUnderContract,
	StatusClosed,
	StatusLost,
	StatusTerminated,
}

// ParseStatus accepts the display form ("Under Contract") and common
// machine forms ("under_contract", "under-contract").
func ParseStatus(raw string) (Status, error) {
	key := statusKey(raw)
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidStatus)
	}
	for _, status := range Statuses {
		if statusKey(string(status)) == key {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Rank is the position of s in the pipeline, or -1 when unknown.
func (s Status) Rank() int {
	for i, status := range Statuses {
		if status == s {
			return i
		}
	}
	return -1
}

func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusLost || s == StatusTerminated
}

// ZeroesFinancials reports whether entering s clears every financial obligation.
func (s Status) ZeroesFinancials() bool {
	return s == StatusLost || s == StatusTerminated
}

// IsPreContract covers the stages whose fee is estimated from the pre-approval amount.
func (s Status) IsPreContract() bool {
	switch s {
	case StatusNewLead, StatusPaired, StatusInCommunication, StatusShowingHomes:
		return true
	default:
		return false
	}
}

func statusKey(raw string) string {
	replacer := strings.NewReplacer("_", " ", "-", " ")
	return strings.Join(strings.Fields(strings.ToLower(replacer.Replace(raw))), " ")
}
