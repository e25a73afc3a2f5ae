package parking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record is the persisted parking entry. The JSON tags are the wire
// contract consumed by the dashboard and must not change.
type Record struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"_id"`
	No         int64          `gorm:"not null" json:"no"`
	Type       string         `gorm:"not null" json:"type"`
	NoPlate    string         `gorm:"not null" json:"noPlate"`
	TimeIn     string         `gorm:"not null" json:"timeIn"`
	TimeOut    string         `json:"timeOut"`
	Duration   string         `json:"duration"`
	BlockID    string         `json:"blockId"`
	Confidence float64        `json:"confidence"`
	ImagePath  string         `json:"imagePath"`
	RawResult  datatypes.JSON `json:"-"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (Record) TableName() string {
	return "parking_records"
}

// BeforeCreate assigns the id client-side; the Postgres schema also
// carries a uuid_generate_v4() default for rows created outside GORM.
func (r *Record) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ScanSummary is the reduced projection served to the polling scanner view.
type ScanSummary struct {
	NoPlate   string    `json:"noPlate"`
	TimeIn    string    `json:"timeIn"`
	BlockID   string    `json:"blockId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ScanResult is the client-visible outcome of one successful scan.
type ScanResult struct {
	Plate      string    `json:"plate"`
	Confidence float64   `json:"confidence"`
	ParkingID  uuid.UUID `json:"parkingId"`
	TimeIn     string    `json:"timeIn"`
	TimeOut    string    `json:"timeOut"`
	Duration   string    `json:"duration"`
	BlockID    string    `json:"blockId"`
}

// OccupancyBucket is one bar of the dashboard occupancy chart: the number
// of vehicles that entered on a given calendar day.
type OccupancyBucket struct {
	Time  string `json:"time"`
	Value int    `json:"value"`
}
