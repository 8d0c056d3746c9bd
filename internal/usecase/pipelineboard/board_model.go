package pipelineboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/usecase/referral"
)

const (
	maxShownRecommendations = 4
	maxAuditLines           = 8
)

// Source is the slice of the referral service the board drives.
type Source interface {
	ListReferrals(ctx context.Context, input referral.ListReferralsInput) ([]domainreferral.Referral, error)
	Insights(ctx context.Context, referralID string, actor domainreferral.Actor) (referral.InsightsResult, error)
	TransitionStatus(ctx context.Context, input referral.TransitionStatusInput) (referral.StatusSnapshot, error)
}

var errNoSource = errors.New("pipeline board source is required")

type Options struct {
	Actor           domainreferral.Actor
	StatusFilter    string
	RefreshInterval time.Duration
}

type boardModel struct {
	ctx             context.Context
	source          Source
	actor           domainreferral.Actor
	statusFilter    string
	refreshInterval time.Duration
	now             func() time.Time

	items         []domainreferral.Referral
	selectedIndex int
	insights      referral.InsightsResult
	hasInsights   bool
	status        string
	auditLogs     []string
}

type referralsLoadedMsg struct {
	items []domainreferral.Referral
	err   error
}

type insightsLoadedMsg struct {
	referralID string
	insights   referral.InsightsResult
	err        error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action     string
	referralID string
	result     string
	err        error
}

func NewBoardModel(ctx context.Context, source Source, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &boardModel{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "usecase.pipelineboard")),
		source:          source,
		actor:           options.Actor,
		statusFilter:    strings.TrimSpace(options.StatusFilter),
		refreshInterval: interval,
		now:             time.Now,
		status:          "loading",
	}
}

// Validate reports whether the board can run.
func Validate(source Source, actor domainreferral.Actor) error {
	if source == nil {
		return errNoSource
	}
	if !actor.Authenticated() {
		return domainreferral.ErrUnauthenticated
	}
	return nil
}

func (m *boardModel) Init() tea.Cmd {
	return tea.Batch(m.loadReferralsCmd(), m.tickCmd())
}

func (m *boardModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadReferralsCmd(), m.tickCmd())
	case referralsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.items = sortForBoard(msg.items)
		if len(m.items) == 0 {
			m.selectedIndex = 0
			m.hasInsights = false
			m.status = "pipeline is empty"
			return m, nil
		}
		if m.selectedIndex >= len(m.items) {
			m.selectedIndex = len(m.items) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d referrals", len(m.items))
		return m, m.loadInsightsCmd()
	case insightsLoadedMsg:
		selected, ok := m.selected()
		if !ok || selected.ID != msg.referralID {
			return m, nil
		}
		if msg.err != nil {
			m.hasInsights = false
			m.status = "insights failed: " + msg.err.Error()
			return m, nil
		}
		m.insights = msg.insights
		m.hasInsights = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
		}
		m.appendAuditLog(msg)
		return m, m.loadReferralsCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadReferralsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadInsightsCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.items)-1 {
				m.selectedIndex++
				return m, m.loadInsightsCmd()
			}
			return m, nil
		case "n":
			return m, m.advanceCmd()
		case "l":
			return m, m.transitionCmd("lost", domainreferral.StatusLost)
		}
	}
	return m, nil
}

func (m *boardModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	urgentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Referral Pipeline"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"actor=%s role=%s status=%s refresh=%s",
		firstNonEmpty(m.actor.ID, "-"),
		firstNonEmpty(string(m.actor.Role), "-"),
		firstNonEmpty(m.statusFilter, "all"),
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Pipeline"))
	builder.WriteString("\n")
	if len(m.items) == 0 {
		builder.WriteString(dimStyle.Render("- no referrals"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(dimStyle.Render(columnSummary(m.items)))
		builder.WriteString("\n")
		now := m.now()
		for index, item := range m.items {
			line := fmt.Sprintf(
				"%-16s %-18s %3dd fee=%s agent=%s",
				truncate(firstNonEmpty(item.BorrowerName(), item.ID), 16),
				item.Status,
				domainreferral.DaysInStatus(item.StatusLastUpdated, now),
				formatCents(item.ReferralFeeDueCents),
				partyLabel(item.AssignedAgent),
			)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Follow-ups"))
	builder.WriteString("\n")
	if !m.hasInsights {
		builder.WriteString(dimStyle.Render("- no insights"))
		builder.WriteString("\n\n")
	} else if len(m.insights.Recommendations) == 0 {
		builder.WriteString("- on track\n\n")
	} else {
		recs := m.insights.Recommendations
		if len(recs) > maxShownRecommendations {
			recs = recs[:maxShownRecommendations]
		}
		for _, rec := range recs {
			label := fmt.Sprintf("[%s]", rec.Priority)
			if rec.Priority == domainreferral.PriorityUrgent {
				label = urgentStyle.Render(label)
			}
			builder.WriteString(fmt.Sprintf("- %s %s: %s\n", label, rec.Title, rec.Message))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: up/k down/j move  g refresh  n next stage  l mark lost  q quit"))
	return builder.String()
}

func (m *boardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *boardModel) loadReferralsCmd() tea.Cmd {
	return func() tea.Msg {
		items, err := m.source.ListReferrals(m.ctx, referral.ListReferralsInput{
			Status: m.statusFilter,
			Actor:  m.actor,
		})
		return referralsLoadedMsg{items: items, err: err}
	}
}

func (m *boardModel) loadInsightsCmd() tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		out, err := m.source.Insights(m.ctx, selected.ID, m.actor)
		return insightsLoadedMsg{referralID: selected.ID, insights: out, err: err}
	}
}

// advanceCmd moves the selection one pre-contract stage forward. Under
// Contract needs contract details and is left to the API.
func (m *boardModel) advanceCmd() tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		m.status = "no referral selected"
		return nil
	}
	next, ok := nextStage(selected.Status)
	if !ok {
		m.status = fmt.Sprintf("%s cannot advance from the console", selected.Status)
		return nil
	}
	return m.transitionCmd("advance", next)
}

func (m *boardModel) transitionCmd(action string, target domainreferral.Status) tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		m.status = "no referral selected"
		return nil
	}
	m.status = action + " in progress"
	return func() tea.Msg {
		out, err := m.source.TransitionStatus(m.ctx, referral.TransitionStatusInput{
			ReferralID: selected.ID,
			Status:     string(target),
			Actor:      m.actor,
		})
		if err != nil {
			logging.Warn(m.ctx, "console transition failed",
				slog.String("referral_id", selected.ID),
				slog.String("target", string(target)),
				slog.String("err", err.Error()),
			)
			return actionDoneMsg{action: action, referralID: selected.ID, err: err}
		}
		return actionDoneMsg{action: action, referralID: selected.ID, result: string(out.Status)}
	}
}

func (m *boardModel) selected() (domainreferral.Referral, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.items) {
		return domainreferral.Referral{}, false
	}
	return m.items[m.selectedIndex], true
}

func (m *boardModel) appendAuditLog(msg actionDoneMsg) {
	result := msg.result
	if msg.err != nil {
		result = "failed: " + msg.err.Error()
	}
	line := fmt.Sprintf("%s %s %s -> %s", m.now().Format("15:04:05"), msg.action, msg.referralID, result)
	m.auditLogs = append(m.auditLogs, line)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[len(m.auditLogs)-maxAuditLines:]
	}
}

func nextStage(current domainreferral.Status) (domainreferral.Status, bool) {
	rank := current.Rank()
	if rank < 0 || rank+1 >= len(domainreferral.Statuses) {
		return "", false
	}
	next := domainreferral.Statuses[rank+1]
	if !current.IsPreContract() || !next.IsPreContract() {
		return "", false
	}
	return next, true
}

// sortForBoard orders by pipeline stage, then by oldest status change.
func sortForBoard(items []domainreferral.Referral) []domainreferral.Referral {
	out := append([]domainreferral.Referral(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Status.Rank(), out[j].Status.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].StatusLastUpdated.Before(out[j].StatusLastUpdated)
	})
	return out
}

func columnSummary(items []domainreferral.Referral) string {
	counts := make(map[domainreferral.Status]int, len(domainreferral.Statuses))
	for _, item := range items {
		counts[item.Status]++
	}
	parts := make([]string, 0, len(domainreferral.Statuses))
	for _, status := range domainreferral.Statuses {
		if counts[status] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
	}
	return strings.Join(parts, "  ")
}

func partyLabel(ref domainreferral.Reference[domainreferral.Party]) string {
	if ref.IsEmpty() {
		return domainreferral.UnassignedLabel
	}
	if p, ok := ref.Expanded(); ok {
		return p.DisplayName()
	}
	return ref.ID()
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
