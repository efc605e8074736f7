package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"litqa/internal/model"
)

// QARecordRepository keeps the bounded QA log in MySQL. Rows beyond capacity
// are deleted in the same transaction as the insert.
type QARecordRepository struct {
	db       *gorm.DB
	capacity int
	locks    *keyedMutex
}

func NewQARecordRepository(db *gorm.DB, capacity int) *QARecordRepository {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &QARecordRepository{db: db, capacity: capacity, locks: newKeyedMutex()}
}

func (r *QARecordRepository) Capacity() int {
	return r.capacity
}

func (r *QARecordRepository) Append(ctx context.Context, record *model.QARecord) error {
	if record == nil {
		return errors.New("append history failed: nil record")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.References == nil {
		record.References = []string{}
	}

	unlock := r.locks.lock(record.UserID)
	defer unlock()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("create qa record failed: %w", err)
		}

		// The row at offset capacity is the newest one that no longer fits.
		var boundary model.QARecord
		err := tx.Select("id").
			Where("user_id = ?", record.UserID).
			Order("id DESC").
			Offset(r.capacity).
			Limit(1).
			Take(&boundary).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find history boundary failed: %w", err)
		}
		if err := tx.Where("user_id = ? AND id <= ?", record.UserID, boundary.ID).
			Delete(&model.QARecord{}).Error; err != nil {
			return fmt.Errorf("evict history failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// List returns at most capacity records for the user, oldest first.
func (r *QARecordRepository) List(ctx context.Context, userID uint) ([]model.QARecord, error) {
	var records []model.QARecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(r.capacity).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list qa records failed: %w", err)
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	for i := range records {
		if records[i].References == nil {
			records[i].References = []string{}
		}
	}
	return records, nil
}
