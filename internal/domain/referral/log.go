package referral

import (
	"fmt"
	"strings"
	"time"
)

const (
	FieldStatus        = "status"
	FieldAssignedAgent = "assignedAgent"
	FieldLender        = "lender"
	FieldPreApproval   = "preApprovalAmountCents"
	FieldDeletedAt     = "deletedAt"
)

// AuditEntry records one field mutation. Entries are never edited.
type AuditEntry struct {
	ReferralID    string
	Seq           uint64
	Field         string
	PreviousValue string
	NewValue      string
	ActorID       string
	ActorRole     Role
	Timestamp     time.Time
}

func NewAuditEntry(referralID string, field string, previous string, next string, actor Actor, at time.Time) AuditEntry {
	return AuditEntry{
		ReferralID:    referralID,
		Field:         field,
		PreviousValue: previous,
		NewValue:      next,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Timestamp:     at.UTC(),
	}
}

type ActivityActor string

const (
	ActivityActorAgent  ActivityActor = "Agent"
	ActivityActorMC     ActivityActor = "MC"
	ActivityActorAdmin  ActivityActor = "Admin"
	ActivityActorSystem ActivityActor = "System"
)

type Channel string

const (
	ChannelSystem  Channel = "system"
	ChannelCall    Channel = "call"
	ChannelEmail   Channel = "email"
	ChannelText    Channel = "text"
	ChannelMeeting Channel = "meeting"
	ChannelOther   Channel = "other"
)

func ParseChannel(raw string) (Channel, error) {
	channel := Channel(strings.ToLower(strings.TrimSpace(raw)))
	switch channel {
	case ChannelCall, ChannelEmail, ChannelText, ChannelMeeting, ChannelOther:
		return channel, nil
	default:
		return "", NewValidationError("channel", fmt.Sprintf("unsupported channel %q", raw))
	}
}

// ActivityEntry is a narrative line in the referral timeline.
type ActivityEntry struct {
	ID         uint64
	ReferralID string
	Actor      ActivityActor
	ActorID    string
	Channel    Channel
	Content    string
	CreatedAt  time.Time
}

// IsHumanContact reports whether the entry records outreach by a person.
func (e ActivityEntry) IsHumanContact() bool {
	return e.Actor != ActivityActorSystem && e.Channel != ChannelSystem
}

func ActivityActorFor(role Role) ActivityActor {
	switch role {
	case RoleAgent:
		return ActivityActorAgent
	case RoleMC:
		return ActivityActorMC
	case RoleAdmin, RoleManager:
		return ActivityActorAdmin
	default:
		return ActivityActorSystem
	}
}

// StatusChangeActivity returns the timeline entry for a status change and
// false when the status did not actually change.
func StatusChangeActivity(referralID string, previous Status, next Status, actor Actor, at time.Time) (ActivityEntry, bool) {
	if previous == next {
		return ActivityEntry{}, false
	}
	return ActivityEntry{
		ReferralID: referralID,
		Actor:      ActivityActorFor(actor.Role),
		ActorID:    actor.ID,
		Channel:    ChannelSystem,
		Content:    fmt.Sprintf("Status changed from %s to %s", previous, next),
		CreatedAt:  at.UTC(),
	}, true
}

const UnassignedLabel = "Unassigned"

// AssignmentMessage words an assignment change for the timeline.
func AssignmentMessage(previousID string, previousName string, nextID string, nextName string) string {
	previousName = nameOrUnassigned(previousName)
	nextName = nameOrUnassigned(nextName)

	switch {
	case strings.TrimSpace(previousID) == "":
		return "Assigned " + nextName
	case previousID != nextID:
		return fmt.Sprintf("Reassigned from %s to %s", previousName, nextName)
	default:
		return "Confirmed assignment for " + nextName
	}
}

func nameOrUnassigned(name string) string {
	if strings.TrimSpace(name) == "" {
		return UnassignedLabel
	}
	return name
}

// Note is a free-form comment with per-role visibility.
type Note struct {
	ID              uint64
	ReferralID      string
	AuthorID        string
	AuthorRole      Role
	Content         string
	HiddenFromAgent bool
	HiddenFromMC    bool
	CreatedAt       time.Time
}

// VisibleTo applies the per-role visibility flags.
func (n Note) VisibleTo(role Role) bool {
	switch role {
	case RoleAgent:
		return !n.HiddenFromAgent
	case RoleMC:
		return !n.HiddenFromMC
	default:
		return true
	}
}
