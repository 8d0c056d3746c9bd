package referral

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// Rank orders priorities; unknown values sort last.
func (p Priority) Rank() int {
	if rank, ok := priorityRank[p]; ok {
		return rank
	}
	return len(priorityRank)
}

const (
	CategoryFirstContact  = "first-contact"
	CategoryMCContact     = "mc-contact"
	CategoryStalled       = "stalled"
	CategoryCheckIn       = "check-in"
	CategoryClosing       = "closing"
	CategoryPayout        = "payout"
	CategoryDocumentation = "documentation"
)

type Recommendation struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	Priority         Priority   `json:"priority"`
	Category         string     `json:"category"`
	DueAt            *time.Time `json:"dueAt,omitempty"`
	SupportingMetric string     `json:"supportingMetric,omitempty"`
}

type Insights struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// SLAPolicy holds the thresholds the insight rules compare against.
type SLAPolicy struct {
	FirstContactWindow  time.Duration
	MCContactWindow     time.Duration
	StallThreshold      time.Duration
	CheckInWindow       time.Duration
	ClosingCheckWindow  time.Duration
	PayoutWindow        time.Duration
	DocumentationWindow time.Duration
}

func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		FirstContactWindow:  24 * time.Hour,
		MCContactWindow:     48 * time.Hour,
		StallThreshold:      14 * 24 * time.Hour,
		CheckInWindow:       7 * 24 * time.Hour,
		ClosingCheckWindow:  30 * 24 * time.Hour,
		PayoutWindow:        14 * 24 * time.Hour,
		DocumentationWindow: 7 * 24 * time.Hour,
	}
}

// withDefaults fills unset thresholds from DefaultSLAPolicy.
func (p SLAPolicy) withDefaults() SLAPolicy {
	d := DefaultSLAPolicy()
	fill := func(v *time.Duration, fallback time.Duration) {
		if *v <= 0 {
			*v = fallback
		}
	}
	fill(&p.FirstContactWindow, d.FirstContactWindow)
	fill(&p.MCContactWindow, d.MCContactWindow)
	fill(&p.StallThreshold, d.StallThreshold)
	fill(&p.CheckInWindow, d.CheckInWindow)
	fill(&p.ClosingCheckWindow, d.ClosingCheckWindow)
	fill(&p.PayoutWindow, d.PayoutWindow)
	fill(&p.DocumentationWindow, d.DocumentationWindow)
	return p
}

type InsightInput struct {
	Referral   Referral
	Activities []ActivityEntry
	Notes      []Note
	Now        time.Time
	Policy     SLAPolicy
}

// ComputeSLAInsights derives follow-up recommendations from referral state.
// It has no side effects and is safe for concurrent use.
func ComputeSLAInsights(in InsightInput) Insights {
	r := in.Referral
	policy := in.Policy.withDefaults()
	now := in.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	stageStart := r.StatusLastUpdated
	if stageStart.IsZero() {
		stageStart = r.CreatedAt
	}
	sinceCreated := elapsed(r.CreatedAt, now)
	inStage := elapsed(stageStart, now)

	_, hasContact := lastHumanContact(in.Activities, time.Time{}, "")
	lastStageContact, hasStageContact := lastHumanContact(in.Activities, stageStart, "")

	recs := make([]Recommendation, 0, 4)

	switch r.Status {
	case StatusNewLead:
		if !hasContact {
			due := r.CreatedAt.Add(policy.FirstContactWindow).UTC()
			priority := PriorityHigh
			title := "Make first contact"
			if sinceCreated >= policy.FirstContactWindow {
				priority = PriorityUrgent
				title = "First contact overdue"
			}
			recs = append(recs, newRecommendation(
				CategoryFirstContact,
				title,
				fmt.Sprintf("No contact has been logged with %s since intake.", borrowerLabel(r)),
				priority,
				&due,
				fmt.Sprintf("%s since intake", formatElapsed(sinceCreated)),
			))
		}
	case StatusPaired:
		if _, ok := lastHumanContact(in.Activities, stageStart, ActivityActorMC); !ok && inStage >= policy.MCContactWindow {
			due := stageStart.Add(policy.MCContactWindow).UTC()
			recs = append(recs, newRecommendation(
				CategoryMCContact,
				"Mortgage consultant has not reached out",
				fmt.Sprintf("%s was paired %s ago without a logged consultant contact.", borrowerLabel(r), formatElapsed(inStage)),
				PriorityHigh,
				&due,
				fmt.Sprintf("%s since pairing", formatElapsed(inStage)),
			))
		}
	case StatusInCommunication, StatusShowingHomes:
		if inStage >= policy.StallThreshold {
			recs = append(recs, newRecommendation(
				CategoryStalled,
				fmt.Sprintf("Stalled in %s", r.Status),
				fmt.Sprintf("%s has been in %s for %s. Confirm next steps or update the status.", borrowerLabel(r), r.Status, formatElapsed(inStage)),
				PriorityMedium,
				nil,
				fmt.Sprintf("%d days in status", DaysInStatus(stageStart, now)),
			))
		}
		if !hasStageContact && inStage >= policy.CheckInWindow {
			due := stageStart.Add(policy.CheckInWindow).UTC()
			recs = append(recs, newRecommendation(
				CategoryCheckIn,
				"Check in with borrower",
				fmt.Sprintf("No activity has been logged for %s since entering %s.", borrowerLabel(r), r.Status),
				PriorityMedium,
				&due,
				fmt.Sprintf("%s without activity", formatElapsed(inStage)),
			))
		} else if hasStageContact && elapsed(lastStageContact, now) >= policy.CheckInWindow {
			recs = append(recs, newRecommendation(
				CategoryCheckIn,
				"Check in with borrower",
				fmt.Sprintf("Last contact with %s was %s ago.", borrowerLabel(r), formatElapsed(elapsed(lastStageContact, now))),
				PriorityMedium,
				nil,
				fmt.Sprintf("%s since last contact", formatElapsed(elapsed(lastStageContact, now))),
			))
		}
	case StatusUnderContract:
		if inStage >= policy.ClosingCheckWindow {
			recs = append(recs, newRecommendation(
				CategoryClosing,
				"Confirm closing timeline",
				fmt.Sprintf("%s has been under contract for %s. Confirm the closing date.", borrowerLabel(r), formatElapsed(inStage)),
				PriorityMedium,
				nil,
				fmt.Sprintf("%d days under contract", DaysInStatus(stageStart, now)),
			))
		}
	case StatusClosed:
		if inStage >= policy.PayoutWindow {
			recs = append(recs, newRecommendation(
				CategoryPayout,
				"Confirm referral payout",
				fmt.Sprintf("%s closed %s ago. Confirm the referral fee has been received.", borrowerLabel(r), formatElapsed(inStage)),
				PriorityLow,
				nil,
				fmt.Sprintf("%d days since closing", DaysInStatus(stageStart, now)),
			))
		}
	}

	if !r.Status.IsTerminal() && len(in.Notes) == 0 && sinceCreated >= policy.DocumentationWindow {
		recs = append(recs, newRecommendation(
			CategoryDocumentation,
			"Add context notes",
			fmt.Sprintf("%s has no notes after %s.", borrowerLabel(r), formatElapsed(sinceCreated)),
			PriorityLow,
			nil,
			"0 notes",
		))
	}

	return Insights{Recommendations: SortRecommendations(recs)}
}

// SortRecommendations orders by priority and keeps input order among ties.
func SortRecommendations(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

// FollowUpTask is a recommendation addressed to one audience over one channel.
type FollowUpTask struct {
	Audience string
	Category string
	Title    string
	Message  string
	Channel  Channel
	Priority Priority
}

func TaskFromRecommendation(rec Recommendation, audience string, channel Channel) FollowUpTask {
	return FollowUpTask{
		Audience: audience,
		Category: rec.Category,
		Title:    rec.Title,
		Message:  rec.Message,
		Channel:  channel,
		Priority: rec.Priority,
	}
}

// FollowUpTaskID is the completion key for a task. Identical fields always
// produce the same id.
func FollowUpTaskID(task FollowUpTask) string {
	scope := strings.TrimSpace(task.Audience)
	if scope == "" {
		scope = strings.TrimSpace(task.Category)
	}
	return strings.Join([]string{
		scope,
		strings.TrimSpace(task.Title),
		strings.TrimSpace(task.Message),
		string(task.Channel),
		string(task.Priority),
	}, "::")
}

func newRecommendation(category string, title string, message string, priority Priority, dueAt *time.Time, metric string) Recommendation {
	rec := Recommendation{
		Title:            title,
		Message:          message,
		Priority:         priority,
		Category:         category,
		DueAt:            dueAt,
		SupportingMetric: metric,
	}
	rec.ID = FollowUpTaskID(TaskFromRecommendation(rec, "", ""))
	return rec
}

func lastHumanContact(entries []ActivityEntry, since time.Time, actor ActivityActor) (time.Time, bool) {
	var last time.Time
	found := false
	for _, entry := range entries {
		if !entry.IsHumanContact() {
			continue
		}
		if actor != "" && entry.Actor != actor {
			continue
		}
		if !since.IsZero() && entry.CreatedAt.Before(since) {
			continue
		}
		if !found || entry.CreatedAt.After(last) {
			last = entry.CreatedAt
			found = true
		}
	}
	return last, found
}

func elapsed(from time.Time, now time.Time) time.Duration {
	if from.IsZero() || now.Before(from) {
		return 0
	}
	return now.Sub(from)
}

func formatElapsed(d time.Duration) string {
	if d < 48*time.Hour {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
}

func borrowerLabel(r Referral) string {
	if name := strings.TrimSpace(r.BorrowerName()); name != "" {
		return name
	}
	return "This borrower"
}
