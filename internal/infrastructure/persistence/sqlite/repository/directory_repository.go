package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/infrastructure/persistence/sqlite/model"
	"referralhub/internal/ports"
)

// DirectoryRepository reads agents and lenders; upserts exist for seeding.
type DirectoryRepository struct {
	db *gorm.DB
}

var _ ports.DirectoryRepository = (*DirectoryRepository)(nil)

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetAgent(ctx context.Context, agentID string) (referral.Party, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return referral.Party{}, err
	}

	var row model.Agent
	if err := db.Where("agent_id = ?", strings.TrimSpace(agentID)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return referral.Party{}, ports.ErrPartyNotFound
		}
		return referral.Party{}, errs.Wrap(err, "query agent by id")
	}
	return referral.Party{ID: row.AgentID, UserID: row.UserID, Name: row.Name, Email: row.Email, Phone: row.Phone}, nil
}

func (r *DirectoryRepository) FindAgentByUserID(ctx context.Context, userID string) (referral.Party, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return referral.Party{}, err
	}

	var row model.Agent
	if err := db.Where("user_id = ?", strings.TrimSpace(userID)).Order("agent_id asc").Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return referral.Party{}, ports.ErrPartyNotFound
		}
		return referral.Party{}, errs.Wrap(err, "query agent by user id")
	}
	return referral.Party{ID: row.AgentID, UserID: row.UserID, Name: row.Name, Email: row.Email, Phone: row.Phone}, nil
}

func (r *DirectoryRepository) GetLender(ctx context.Context, lenderID string) (referral.Party, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return referral.Party{}, err
	}

	var row model.Lender
	if err := db.Where("lender_id = ?", strings.TrimSpace(lenderID)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return referral.Party{}, ports.ErrPartyNotFound
		}
		return referral.Party{}, errs.Wrap(err, "query lender by id")
	}
	return referral.Party{ID: row.LenderID, UserID: row.UserID, Name: row.Name, Email: row.Email, Phone: row.Phone}, nil
}

func (r *DirectoryRepository) UpsertAgent(ctx context.Context, p referral.Party) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.Agent{AgentID: p.ID, UserID: p.UserID, Name: p.Name, Email: p.Email, Phone: p.Phone}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "name", "email", "phone"}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert agent")
	}
	return nil
}

func (r *DirectoryRepository) UpsertLender(ctx context.Context, p referral.Party) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.Lender{LenderID: p.ID, UserID: p.UserID, Name: p.Name, Email: p.Email, Phone: p.Phone}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lender_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "name", "email", "phone"}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert lender")
	}
	return nil
}
