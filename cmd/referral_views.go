package cmd

import (
	"time"

	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/usecase/referral"
)

type partyView struct {
	ID     string `json:"id"`
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

type referralView struct {
	ID                     string                `json:"id"`
	BorrowerFirstName      string                `json:"borrowerFirstName"`
	BorrowerLastName       string                `json:"borrowerLastName"`
	BorrowerEmail          string                `json:"borrowerEmail,omitempty"`
	BorrowerPhone          string                `json:"borrowerPhone,omitempty"`
	Status                 domainreferral.Status `json:"status"`
	StatusLastUpdated      time.Time             `json:"statusLastUpdated"`
	DaysInStatus           int                   `json:"daysInStatus"`
	PreApprovalAmountCents int64                 `json:"preApprovalAmountCents"`
	EstPurchasePriceCents  int64                 `json:"estPurchasePriceCents"`
	CommissionBasisPoints  int64                 `json:"commissionBasisPoints"`
	ReferralFeeBasisPoints int64                 `json:"referralFeeBasisPoints"`
	ReferralFeeDueCents    int64                 `json:"referralFeeDueCents"`
	PropertyAddress        string                `json:"propertyAddress,omitempty"`
	PropertyCity           string                `json:"propertyCity,omitempty"`
	PropertyState          string                `json:"propertyState,omitempty"`
	PropertyPostalCode     string                `json:"propertyPostalCode,omitempty"`
	AssignedAgent          *partyView            `json:"assignedAgent,omitempty"`
	Lender                 *partyView            `json:"lender,omitempty"`
	CreatedAt              time.Time             `json:"createdAt"`
	UpdatedAt              time.Time             `json:"updatedAt"`
}

type auditView struct {
	Seq           uint64              `json:"seq"`
	Field         string              `json:"field"`
	PreviousValue string              `json:"previousValue"`
	NewValue      string              `json:"newValue"`
	ActorID       string              `json:"actorId"`
	ActorRole     domainreferral.Role `json:"actorRole"`
	Timestamp     time.Time           `json:"timestamp"`
}

type activityView struct {
	ID        uint64                       `json:"id"`
	Actor     domainreferral.ActivityActor `json:"actor"`
	ActorID   string                       `json:"actorId,omitempty"`
	Channel   domainreferral.Channel       `json:"channel"`
	Content   string                       `json:"content"`
	CreatedAt time.Time                    `json:"createdAt"`
}

type noteView struct {
	ID              uint64              `json:"id"`
	AuthorID        string              `json:"authorId"`
	AuthorRole      domainreferral.Role `json:"authorRole"`
	Content         string              `json:"content"`
	HiddenFromAgent bool                `json:"hiddenFromAgent"`
	HiddenFromMC    bool                `json:"hiddenFromMc"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type paymentView struct {
	ID                  string                       `json:"id"`
	Status              domainreferral.PaymentStatus `json:"status"`
	ExpectedAmountCents int64                        `json:"expectedAmountCents"`
	ReceivedAmountCents int64                        `json:"receivedAmountCents"`
	InvoicedAt          *time.Time                   `json:"invoicedAt,omitempty"`
	PaidAt              *time.Time                   `json:"paidAt,omitempty"`
	UpdatedAt           time.Time                    `json:"updatedAt"`
}

type addNoteView struct {
	Note                  noteView `json:"note"`
	DeliveryFailed        bool     `json:"deliveryFailed,omitempty"`
	DeliveryFailureReason string   `json:"deliveryFailureReason,omitempty"`
}

func toReferralView(r domainreferral.Referral, now time.Time) referralView {
	return referralView{
		ID:                     r.ID,
		BorrowerFirstName:      r.BorrowerFirstName,
		BorrowerLastName:       r.BorrowerLastName,
		BorrowerEmail:          r.BorrowerEmail,
		BorrowerPhone:          r.BorrowerPhone,
		Status:                 r.Status,
		StatusLastUpdated:      r.StatusLastUpdated,
		DaysInStatus:           domainreferral.DaysInStatus(r.StatusLastUpdated, now),
		PreApprovalAmountCents: r.PreApprovalAmountCents,
		EstPurchasePriceCents:  r.EstPurchasePriceCents,
		CommissionBasisPoints:  r.CommissionBasisPoints,
		ReferralFeeBasisPoints: r.ReferralFeeBasisPoints,
		ReferralFeeDueCents:    r.ReferralFeeDueCents,
		PropertyAddress:        r.Property.Address,
		PropertyCity:           r.Property.City,
		PropertyState:          r.Property.State,
		PropertyPostalCode:     r.Property.PostalCode,
		AssignedAgent:          toPartyView(r.AssignedAgent),
		Lender:                 toPartyView(r.Lender),
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

func toPartyView(ref domainreferral.Reference[domainreferral.Party]) *partyView {
	if ref.IsEmpty() {
		return nil
	}
	view := &partyView{ID: ref.ID()}
	if p, ok := ref.Expanded(); ok {
		view.UserID = p.UserID
		view.Name = p.Name
		view.Email = p.Email
	}
	return view
}

func toReferralViews(items []domainreferral.Referral, now time.Time) []referralView {
	out := make([]referralView, 0, len(items))
	for _, item := range items {
		out = append(out, toReferralView(item, now))
	}
	return out
}

func toAuditViews(items []domainreferral.AuditEntry) []auditView {
	out := make([]auditView, 0, len(items))
	for _, e := range items {
		out = append(out, auditView{
			Seq:           e.Seq,
			Field:         e.Field,
			PreviousValue: e.PreviousValue,
			NewValue:      e.NewValue,
			ActorID:       e.ActorID,
			ActorRole:     e.ActorRole,
			Timestamp:     e.Timestamp,
		})
	}
	return out
}

func toActivityView(e domainreferral.ActivityEntry) activityView {
	return activityView{
		ID:        e.ID,
		Actor:     e.Actor,
		ActorID:   e.ActorID,
		Channel:   e.Channel,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
}

func toActivityViews(items []domainreferral.ActivityEntry) []activityView {
	out := make([]activityView, 0, len(items))
	for _, e := range items {
		out = append(out, toActivityView(e))
	}
	return out
}

func toNoteView(n domainreferral.Note) noteView {
	return noteView{
		ID:              n.ID,
		AuthorID:        n.AuthorID,
		AuthorRole:      n.AuthorRole,
		Content:         n.Content,
		HiddenFromAgent: n.HiddenFromAgent,
		HiddenFromMC:    n.HiddenFromMC,
		CreatedAt:       n.CreatedAt,
	}
}

func toNoteViews(items []domainreferral.Note) []noteView {
	out := make([]noteView, 0, len(items))
	for _, n := range items {
		out = append(out, toNoteView(n))
	}
	return out
}

func toPaymentViews(items []domainreferral.Payment) []paymentView {
	out := make([]paymentView, 0, len(items))
	for _, p := range items {
		out = append(out, paymentView{
			ID:                  p.ID,
			Status:              p.Status,
			ExpectedAmountCents: p.ExpectedAmountCents,
			ReceivedAmountCents: p.ReceivedAmountCents,
			InvoicedAt:          p.InvoicedAt,
			PaidAt:              p.PaidAt,
			UpdatedAt:           p.UpdatedAt,
		})
	}
	return out
}

func toAddNoteView(out referral.AddNoteResult) addNoteView {
	return addNoteView{
		Note:                  toNoteView(out.Note),
		DeliveryFailed:        out.DeliveryFailed,
		DeliveryFailureReason: out.DeliveryFailureReason,
	}
}
