package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/types"
)

type StatusRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, snap *types.StatusSnapshot) error
	Get(ctx context.Context, tx *gorm.DB, jobID string) (*types.StatusSnapshot, error)
}

type statusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatusRepo(db *gorm.DB, baseLog *logger.Logger) StatusRepo {
	return &statusRepo{db: db, log: baseLog.With("repo", "StatusRepo")}
}

func (r *statusRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *statusRepo) Upsert(ctx context.Context, tx *gorm.DB, snap *types.StatusSnapshot) error {
	if snap == nil || snap.JobID == "" {
		return nil
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	return r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"snapshot", "updated_at"}),
		}).
		Create(snap).Error
}

func (r *statusRepo) Get(ctx context.Context, tx *gorm.DB, jobID string) (*types.StatusSnapshot, error) {
	var snap types.StatusSnapshot
	err := r.conn(tx).WithContext(ctx).Where("job_id = ?", jobID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
