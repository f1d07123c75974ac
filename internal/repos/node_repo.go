package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/types"
)

type NodeRepo interface {
	ReplaceForJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, records []*types.NodeRecord) error
	ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.NodeRecord, error)
	CountByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (int64, error)
}

type nodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNodeRepo(db *gorm.DB, baseLog *logger.Logger) NodeRepo {
	return &nodeRepo{db: db, log: baseLog.With("repo", "NodeRepo")}
}

func (r *nodeRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ReplaceForJob swaps the job's node set atomically. Re-runs of the persist
// stage must not leave rows from a previous attempt behind.
func (r *nodeRepo) ReplaceForJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, records []*types.NodeRecord) error {
	if jobID == uuid.Nil {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("job_id = ?", jobID).Delete(&types.NodeRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return txx.CreateInBatches(&records, 200).Error
	})
}

func (r *nodeRepo) ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.NodeRecord, error) {
	var records []*types.NodeRecord
	err := r.conn(tx).WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("node_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *nodeRepo) CountByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&types.NodeRecord{}).
		Where("job_id = ?", jobID).
		Count(&count).Error
	return count, err
}
