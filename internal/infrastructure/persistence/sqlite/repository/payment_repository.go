package repository

import (
	"context"

	"gorm.io/gorm"

	"referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/infrastructure/persistence/sqlite/model"
	"referralhub/internal/ports"
)

type PaymentRepository struct {
	db *gorm.DB
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) ListPayments(ctx context.Context, referralID string) ([]referral.Payment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Payment
	if err := db.Where("referral_id = ?", referralID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query payments")
	}

	items := make([]referral.Payment, 0, len(rows))
	for _, row := range rows {
		items = append(items, referral.Payment{
			ID:                  row.PaymentID,
			ReferralID:          row.ReferralID,
			Status:              referral.PaymentStatus(row.Status),
			ExpectedAmountCents: row.ExpectedAmountCents,
			ReceivedAmountCents: row.ReceivedAmountCents,
			InvoicedAt:          parseTimePtr(row.InvoicedAt),
			PaidAt:              parseTimePtr(row.PaidAt),
			Notes:               row.Notes,
			CreatedAt:           parseTime(row.CreatedAt),
			UpdatedAt:           parseTime(row.UpdatedAt),
		})
	}
	return items, nil
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, p referral.Payment) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.Payment{
		PaymentID:           p.ID,
		ReferralID:          p.ReferralID,
		Status:              string(p.Status),
		ExpectedAmountCents: p.ExpectedAmountCents,
		ReceivedAmountCents: p.ReceivedAmountCents,
		InvoicedAt:          formatTimePtr(p.InvoicedAt),
		PaidAt:              formatTimePtr(p.PaidAt),
		Notes:               p.Notes,
		CreatedAt:           formatTime(p.CreatedAt),
		UpdatedAt:           formatTime(p.UpdatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert payment")
	}
	return nil
}

// UpdateExpectedByStatus only touches rows in status whose amount differs,
// so repeated calls with the same amount report zero affected rows.
func (r *PaymentRepository) UpdateExpectedByStatus(ctx context.Context, referralID string, status referral.PaymentStatus, expectedCents int64, updatedAt string) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	result := db.Model(&model.Payment{}).
		Where("referral_id = ? AND status = ? AND expected_amount_cents <> ?", referralID, string(status), expectedCents).
		Updates(map[string]any{
			"expected_amount_cents": expectedCents,
			"updated_at":            updatedAt,
		})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "update payment expected amount")
	}
	return result.RowsAffected, nil
}

func (r *PaymentRepository) ZeroAllExpected(ctx context.Context, referralID string, updatedAt string) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	result := db.Model(&model.Payment{}).
		Where("referral_id = ? AND expected_amount_cents <> 0", referralID).
		Updates(map[string]any{
			"expected_amount_cents": int64(0),
			"updated_at":            updatedAt,
		})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "zero payment expected amounts")
	}
	return result.RowsAffected, nil
}

// CountByStatus reports how many rows of the referral are in status.
func (r *PaymentRepository) CountByStatus(ctx context.Context, referralID string, status referral.PaymentStatus) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Payment{}).
		Where("referral_id = ? AND status = ?", referralID, string(status)).
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count payments")
	}
	return count, nil
}
