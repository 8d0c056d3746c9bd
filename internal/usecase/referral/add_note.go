package referral

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

// AddNote appends a note and then emails the requested audiences once.
// Delivery problems are reported on the result and never undo the note.
func (s *Service) AddNote(ctx context.Context, input AddNoteInput) (AddNoteResult, error) {
	ctx, err := s.begin(ctx, "add_note", input.ReferralID, input.Actor)
	if err != nil {
		return AddNoteResult{}, err
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return AddNoteResult{}, domainreferral.NewValidationError("content", "is required")
	}
	targets, err := normalizeEmailTargets(input.EmailTargets)
	if err != nil {
		return AddNoteResult{}, err
	}

	current, err := s.loadReferral(ctx, input.ReferralID)
	if err != nil {
		return AddNoteResult{}, err
	}
	if err := domainreferral.Authorize(input.Actor, current, true); err != nil {
		return AddNoteResult{}, err
	}

	note, err := s.deps.Notes.AppendNote(ctx, domainreferral.Note{
		ReferralID:      current.ID,
		AuthorID:        input.Actor.ID,
		AuthorRole:      input.Actor.Role,
		Content:         content,
		HiddenFromAgent: input.HiddenFromAgent,
		HiddenFromMC:    input.HiddenFromMC,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		return AddNoteResult{}, err
	}

	result := AddNoteResult{Note: note}
	if len(targets) == 0 {
		return result, nil
	}

	if reason := s.deliverNote(ctx, current, note, targets); reason != "" {
		result.DeliveryFailed = true
		result.DeliveryFailureReason = reason
	}
	return result, nil
}

func (s *Service) deliverNote(ctx context.Context, item domainreferral.Referral, note domainreferral.Note, targets []string) string {
	if s.deps.Notifier == nil {
		return "notifications are not configured"
	}

	to, problems := s.noteRecipients(item, note, targets)
	if len(to) > 0 {
		err := s.deps.Notifier.Notify(ctx, ports.Notification{
			ReferralID: item.ID,
			To:         to,
			Subject:    fmt.Sprintf("New note on referral for %s", borrowerOrID(item)),
			Body:       note.Content,
		})
		if err != nil {
			logging.Warn(ctx, "note notification failed", slog.Any("err", errs.Loggable(err)))
			problems = append(problems, "delivery failed: "+err.Error())
		}
	}
	return strings.Join(problems, "; ")
}

// noteRecipients resolves targets to addresses and explains the ones that
// cannot receive the note.
func (s *Service) noteRecipients(item domainreferral.Referral, note domainreferral.Note, targets []string) ([]string, []string) {
	var to []string
	var problems []string

	for _, target := range targets {
		switch target {
		case EmailTargetAgent:
			if note.HiddenFromAgent {
				problems = append(problems, "note is hidden from the agent")
				continue
			}
			to, problems = appendPartyEmail(to, problems, item.AssignedAgent, "agent")
		case EmailTargetMC:
			if note.HiddenFromMC {
				problems = append(problems, "note is hidden from the mortgage consultant")
				continue
			}
			to, problems = appendPartyEmail(to, problems, item.Lender, "mortgage consultant")
		case EmailTargetAdmin:
			if len(s.settings.AdminEmails) == 0 {
				problems = append(problems, "no admin email configured")
				continue
			}
			to = append(to, s.settings.AdminEmails...)
		}
	}
	return to, problems
}

func appendPartyEmail(to []string, problems []string, ref domainreferral.Reference[domainreferral.Party], label string) ([]string, []string) {
	party, ok := ref.Expanded()
	if !ok {
		return to, append(problems, "no "+label+" assigned")
	}
	email := strings.TrimSpace(party.Email)
	if email == "" {
		return to, append(problems, label+" has no email address")
	}
	return append(to, email), problems
}

func normalizeEmailTargets(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		target := strings.ToLower(strings.TrimSpace(item))
		switch target {
		case EmailTargetAgent, EmailTargetMC, EmailTargetAdmin:
		default:
			return nil, domainreferral.NewValidationError("emailTargets", fmt.Sprintf("unsupported target %q", item))
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out, nil
}

func borrowerOrID(item domainreferral.Referral) string {
	if name := strings.TrimSpace(item.BorrowerName()); name != "" {
		return name
	}
	return item.ID
}
