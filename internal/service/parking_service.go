package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"parkease-service/internal/domain/parking"
	"parkease-service/internal/recognizer"
	"parkease-service/internal/repository"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrNoPlate            = errors.New("no license plate detected in the image")
	ErrGatewayUnreachable = errors.New("recognition service unreachable")
)

const (
	defaultRecordLimit = 20
	defaultScanLimit   = 10
	maxRecordLimit     = 100
	occupancyWindow    = 14 * 24 * time.Hour
	vehicleType        = "Car"
	clockFormat        = "3:04:05 PM"
)

// Recognizer is the gateway to the external plate-recognition service.
type Recognizer interface {
	Recognize(ctx context.Context, image io.Reader, filename string) (*recognizer.Recognition, error)
}

// ScanUpload references a transient uploaded image already written to disk
// by the HTTP layer. The service owns its deletion from here on.
type ScanUpload struct {
	Path     string
	Filename string
}

type ParkingService struct {
	repo       *repository.ParkingRepository
	recognizer Recognizer
	log        zerolog.Logger
}

func NewParkingService(repo *repository.ParkingRepository, rec Recognizer, log zerolog.Logger) *ParkingService {
	return &ParkingService{
		repo:       repo,
		recognizer: rec,
		log:        log,
	}
}

// ProcessScan runs one scan end to end: recognize the plate, synthesize the
// derived fields, persist the record, and clean up the transient file. The
// file is removed on every path; failures are terminal for the request.
func (s *ParkingService) ProcessScan(ctx context.Context, upload ScanUpload) (*parking.ScanResult, error) {
	if upload.Path == "" {
		return nil, fmt.Errorf("%w: no image file provided", ErrInvalidInput)
	}
	defer s.removeUpload(upload.Path)

	file, err := os.Open(upload.Path)
	if err != nil {
		return nil, fmt.Errorf("open uploaded image: %w", err)
	}

	rec, err := s.recognizer.Recognize(ctx, file, upload.Filename)
	file.Close()
	if err != nil {
		s.log.Error().Err(err).Str("filename", upload.Filename).Msg("recognition failed")
		var upstream *recognizer.UpstreamError
		if errors.As(err, &upstream) {
			return nil, fmt.Errorf("recognize plate: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}

	if len(rec.Results) == 0 {
		s.log.Info().Str("filename", upload.Filename).Msg("no plate found in image")
		return nil, ErrNoPlate
	}

	top := rec.Results[0]
	plate := strings.ToUpper(top.Plate)

	timeIn := time.Now()
	timeOut := synthesizeTimeOut(timeIn)

	record := &parking.Record{
		No:         timeIn.UnixMilli(),
		Type:       vehicleType,
		NoPlate:    plate,
		TimeIn:     timeIn.Format(clockFormat),
		TimeOut:    timeOut.Format(clockFormat),
		Duration:   formatDuration(timeOut.Sub(timeIn)),
		BlockID:    randomBlockID(),
		Confidence: top.Score,
		ImagePath:  upload.Path,
		RawResult:  datatypes.JSON(rec.Raw),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.log.Error().Err(err).Str("plate", plate).Msg("failed to save parking record")
		return nil, fmt.Errorf("save parking record: %w", err)
	}

	s.log.Info().
		Str("id", record.ID.String()).
		Str("plate", plate).
		Float64("confidence", top.Score).
		Str("time_in", record.TimeIn).
		Str("time_out", record.TimeOut).
		Str("block_id", record.BlockID).
		Msg("saved parking record")

	return &parking.ScanResult{
		Plate:      plate,
		Confidence: top.Score,
		ParkingID:  record.ID,
		TimeIn:     record.TimeIn,
		TimeOut:    record.TimeOut,
		Duration:   record.Duration,
		BlockID:    record.BlockID,
	}, nil
}

// RecentRecords returns the newest full records, created_at descending.
func (s *ParkingService) RecentRecords(ctx context.Context, limit int) ([]parking.Record, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	if limit > maxRecordLimit {
		limit = maxRecordLimit
	}

	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list parking records: %w", err)
	}
	return records, nil
}

// RecentScans returns the reduced projection for the scanner view.
func (s *ParkingService) RecentScans(ctx context.Context, limit int) ([]parking.ScanSummary, error) {
	if limit <= 0 {
		limit = defaultScanLimit
	}
	if limit > maxRecordLimit {
		limit = maxRecordLimit
	}

	scans, err := s.repo.ListRecentScans(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent scans: %w", err)
	}
	return scans, nil
}

// LatestRecord returns the newest record, or nil on an empty store.
func (s *ParkingService) LatestRecord(ctx context.Context) (*parking.Record, error) {
	record, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest record: %w", err)
	}
	return record, nil
}

// Delete removes one record by id and returns its snapshot. A malformed or
// unknown id is a not-found outcome, so repeated deletion is harmless.
func (s *ParkingService) Delete(ctx context.Context, id string) (*parking.Record, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: parking entry %q", ErrNotFound, id)
	}

	record, err := s.repo.DeleteByID(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("delete parking record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: parking entry %q", ErrNotFound, id)
	}

	s.log.Info().Str("id", id).Str("plate", record.NoPlate).Msg("deleted parking record")
	return record, nil
}

// Occupancy buckets the last two weeks of entries per calendar day for the
// dashboard chart, oldest day first.
func (s *ParkingService) Occupancy(ctx context.Context) ([]parking.OccupancyBucket, error) {
	since := time.Now().Add(-occupancyWindow)
	records, err := s.repo.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list records for occupancy: %w", err)
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, r := range records {
		day := fmt.Sprintf("%d/%d", int(r.CreatedAt.Month()), r.CreatedAt.Day())
		if _, seen := counts[day]; !seen {
			order = append(order, day)
		}
		counts[day]++
	}

	buckets := make([]parking.OccupancyBucket, 0, len(order))
	for _, day := range order {
		buckets = append(buckets, parking.OccupancyBucket{Time: day, Value: counts[day]})
	}
	return buckets, nil
}

func (s *ParkingService) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("path", path).Msg("failed to remove uploaded file")
	}
}
