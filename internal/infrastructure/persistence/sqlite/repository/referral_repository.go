package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/infrastructure/persistence/sqlite/model"
	"referralhub/internal/ports"
)

// ReferralRepository persists referrals and their append-only logs.
type ReferralRepository struct {
	db *gorm.DB
}

var (
	_ ports.ReferralRepository = (*ReferralRepository)(nil)
	_ ports.AuditLog           = (*ReferralRepository)(nil)
	_ ports.ActivityLog        = (*ReferralRepository)(nil)
	_ ports.NoteLog            = (*ReferralRepository)(nil)
)

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) CreateReferral(ctx context.Context, item referral.Referral) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := toReferralRow(item)
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert referral")
	}
	return nil
}

func (r *ReferralRepository) GetReferral(ctx context.Context, referralID string) (referral.Referral, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return referral.Referral{}, err
	}

	var row model.Referral
	if err := db.Where("referral_id = ?", strings.TrimSpace(referralID)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return referral.Referral{}, ports.ErrReferralNotFound
		}
		return referral.Referral{}, errs.Wrap(err, "query referral by id")
	}
	return fromReferralRow(row), nil
}

func (r *ReferralRepository) ListReferrals(ctx context.Context, filter ports.ReferralFilter) ([]referral.Referral, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Referral{})
	if !filter.IncludeDeleted {
		query = query.Where("deleted_at IS NULL")
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if userID := strings.TrimSpace(filter.AgentUserID); userID != "" {
		sub := db.Model(&model.Agent{}).Select("agent_id").Where("user_id = ?", userID)
		query = query.Where("(agent_id IN (?) OR agent_id = ?)", sub, userID)
	}
	if userID := strings.TrimSpace(filter.LenderUserID); userID != "" {
		sub := db.Model(&model.Lender{}).Select("lender_id").Where("user_id = ?", userID)
		query = query.Where("(lender_id IN (?) OR lender_id = ?)", sub, userID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Referral
	if err := query.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query referrals")
	}

	items := make([]referral.Referral, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromReferralRow(row))
	}
	return items, nil
}

func (r *ReferralRepository) SaveReferral(ctx context.Context, item referral.Referral) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := toReferralRow(item)
	result := db.Model(&model.Referral{}).Where("referral_id = ?", row.ReferralID).Select("*").Omit("referral_id", "created_at").Updates(&row)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update referral")
	}
	if result.RowsAffected == 0 {
		return ports.ErrReferralNotFound
	}
	return nil
}

func (r *ReferralRepository) AppendAudit(ctx context.Context, entry referral.AuditEntry) (referral.AuditEntry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return referral.AuditEntry{}, err
	}

	var maxSeq uint64
	if err := db.Model(&model.AuditEntry{}).
		Where("referral_id = ?", entry.ReferralID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return referral.AuditEntry{}, errs.Wrap(err, "query audit sequence")
	}

	row := model.AuditEntry{
		ReferralID:    entry.ReferralID,
		Seq:           maxSeq + 1,
		Field:         entry.Field,
		PreviousValue: entry.PreviousValue,
		NewValue:      entry.NewValue,
		ActorID:       entry.ActorID,
		ActorRole:     string(entry.ActorRole),
		Timestamp:     formatTime(entry.Timestamp),
	}
	if err := db.Create(&row).Error; err != nil {
		return referral.AuditEntry{}, errs.Wrap(err, "insert audit entry")
	}

	entry.Seq = row.Seq
	return entry, nil
}

func (r *ReferralRepository) ListAudit(ctx context.Context, referralID string) ([]referral.AuditEntry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.AuditEntry
	if err := db.Where("referral_id = ?", referralID).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query audit entries")
	}

	items := make([]referral.AuditEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, referral.AuditEntry{
			ReferralID:    row.ReferralID,
			Seq:           row.Seq,
			Field:         row.Field,
			PreviousValue: row.PreviousValue,
			NewValue:      row.NewValue,
			ActorID:       row.ActorID,
			ActorRole:     referral.Role(row.ActorRole),
			Timestamp:     parseTime(row.Timestamp),
		})
	}
	return items, nil
}

func (r *ReferralRepository) AppendActivity(ctx context.Context, entry referral.ActivityEntry) (referral.ActivityEntry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return referral.ActivityEntry{}, err
	}

	row := model.ActivityEntry{
		ReferralID: entry.ReferralID,
		Actor:      string(entry.Actor),
		ActorID:    entry.ActorID,
		Channel:    string(entry.Channel),
		Content:    entry.Content,
		CreatedAt:  formatTime(entry.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return referral.ActivityEntry{}, errs.Wrap(err, "insert activity entry")
	}

	entry.ID = row.ActivityID
	return entry, nil
}

func (r *ReferralRepository) ListActivity(ctx context.Context, referralID string, limit int) ([]referral.ActivityEntry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.ActivityEntry{}).Where("referral_id = ?", referralID).Order("activity_id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.ActivityEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query activity entries")
	}

	items := make([]referral.ActivityEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, referral.ActivityEntry{
			ID:         row.ActivityID,
			ReferralID: row.ReferralID,
			Actor:      referral.ActivityActor(row.Actor),
			ActorID:    row.ActorID,
			Channel:    referral.Channel(row.Channel),
			Content:    row.Content,
			CreatedAt:  parseTime(row.CreatedAt),
		})
	}
	return items, nil
}

func (r *ReferralRepository) AppendNote(ctx context.Context, note referral.Note) (referral.Note, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return referral.Note{}, err
	}

	row := model.Note{
		ReferralID:      note.ReferralID,
		AuthorID:        note.AuthorID,
		AuthorRole:      string(note.AuthorRole),
		Content:         note.Content,
		HiddenFromAgent: note.HiddenFromAgent,
		HiddenFromMC:    note.HiddenFromMC,
		CreatedAt:       formatTime(note.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return referral.Note{}, errs.Wrap(err, "insert note")
	}

	note.ID = row.NoteID
	return note, nil
}

func (r *ReferralRepository) ListNotes(ctx context.Context, referralID string) ([]referral.Note, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Note
	if err := db.Where("referral_id = ?", referralID).Order("note_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query notes")
	}

	items := make([]referral.Note, 0, len(rows))
	for _, row := range rows {
		items = append(items, referral.Note{
			ID:              row.NoteID,
			ReferralID:      row.ReferralID,
			AuthorID:        row.AuthorID,
			AuthorRole:      referral.Role(row.AuthorRole),
			Content:         row.Content,
			HiddenFromAgent: row.HiddenFromAgent,
			HiddenFromMC:    row.HiddenFromMC,
			CreatedAt:       parseTime(row.CreatedAt),
		})
	}
	return items, nil
}

func toReferralRow(item referral.Referral) model.Referral {
	return model.Referral{
		ReferralID:             item.ID,
		BorrowerFirstName:      item.BorrowerFirstName,
		BorrowerLastName:       item.BorrowerLastName,
		BorrowerEmail:          item.BorrowerEmail,
		BorrowerPhone:          item.BorrowerPhone,
		Status:                 string(item.Status),
		StatusLastUpdated:      formatTime(item.StatusLastUpdated),
		PreApprovalAmountCents: item.PreApprovalAmountCents,
		EstPurchasePriceCents:  item.EstPurchasePriceCents,
		CommissionBasisPoints:  item.CommissionBasisPoints,
		ReferralFeeBasisPoints: item.ReferralFeeBasisPoints,
		ReferralFeeDueCents:    item.ReferralFeeDueCents,
		PropertyAddress:        item.Property.Address,
		PropertyCity:           item.Property.City,
		PropertyState:          item.Property.State,
		PropertyPostalCode:     item.Property.PostalCode,
		AgentID:                optionalID(item.AssignedAgent.ID()),
		LenderID:               optionalID(item.Lender.ID()),
		CreatedAt:              formatTime(item.CreatedAt),
		UpdatedAt:              formatTime(item.UpdatedAt),
		DeletedAt:              formatTimePtr(item.DeletedAt),
	}
}

func fromReferralRow(row model.Referral) referral.Referral {
	return referral.Referral{
		ID:                     row.ReferralID,
		BorrowerFirstName:      row.BorrowerFirstName,
		BorrowerLastName:       row.BorrowerLastName,
		BorrowerEmail:          row.BorrowerEmail,
		BorrowerPhone:          row.BorrowerPhone,
		Status:                 referral.Status(row.Status),
		StatusLastUpdated:      parseTime(row.StatusLastUpdated),
		PreApprovalAmountCents: row.PreApprovalAmountCents,
		EstPurchasePriceCents:  row.EstPurchasePriceCents,
		CommissionBasisPoints:  row.CommissionBasisPoints,
		ReferralFeeBasisPoints: row.ReferralFeeBasisPoints,
		ReferralFeeDueCents:    row.ReferralFeeDueCents,
		Property: referral.Property{
			Address:    row.PropertyAddress,
			City:       row.PropertyCity,
			State:      row.PropertyState,
			PostalCode: row.PropertyPostalCode,
		},
		AssignedAgent: referral.RefID[referral.Party](derefString(row.AgentID)),
		Lender:        referral.RefID[referral.Party](derefString(row.LenderID)),
		CreatedAt:     parseTime(row.CreatedAt),
		UpdatedAt:     parseTime(row.UpdatedAt),
		DeletedAt:     parseTimePtr(row.DeletedAt),
	}
}
