package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"parkease-service/internal/domain/parking"
)

type ParkingRepository struct {
	db *gorm.DB
}

func NewParkingRepository(db *gorm.DB) *ParkingRepository {
	return &ParkingRepository{db: db}
}

func (r *ParkingRepository) Create(ctx context.Context, record *parking.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListRecent returns the newest records first, at most limit of them.
func (r *ParkingRepository) ListRecent(ctx context.Context, limit int) ([]parking.Record, error) {
	var records []parking.Record
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// ListRecentScans returns the reduced projection used by the scanner view.
func (r *ParkingRepository) ListRecentScans(ctx context.Context, limit int) ([]parking.ScanSummary, error) {
	var scans []parking.ScanSummary
	err := r.db.WithContext(ctx).
		Model(&parking.Record{}).
		Select("no_plate, time_in, block_id, created_at").
		Order("created_at DESC").
		Limit(limit).
		Scan(&scans).Error
	return scans, err
}

// Latest returns the most recently created record, or nil on an empty store.
func (r *ParkingRepository) Latest(ctx context.Context) (*parking.Record, error) {
	var record parking.Record
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		First(&record).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteByID removes one record and returns its snapshot. A missing id
// yields (nil, nil), not an error.
func (r *ParkingRepository) DeleteByID(ctx context.Context, id uuid.UUID) (*parking.Record, error) {
	var record parking.Record
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Delete(&parking.Record{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListSince returns all records created at or after the given time,
// oldest first. Feeds the occupancy bucketing.
func (r *ParkingRepository) ListSince(ctx context.Context, since time.Time) ([]parking.Record, error) {
	var records []parking.Record
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}
