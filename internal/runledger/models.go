// Package runledger records the outcome of every pipeline run.
package runledger

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run stores one pipeline execution.
type Run struct {
	ID           snowflake.ID   `gorm:"primaryKey;autoIncrement:false"`
	Status       string         `gorm:"type:text;not null"`
	StartedAt    time.Time      `gorm:"not null"`
	FinishedAt   time.Time      `gorm:"not null"`
	Records      int            `gorm:"not null;default:0"`
	Brands       int            `gorm:"not null;default:0"`
	Customers    int            `gorm:"not null;default:0"`
	SnapshotPath string         `gorm:"type:text"`
	Error        string         `gorm:"type:text"`
	Summary      datatypes.JSON `gorm:"type:json"`
}

// TableName sets the database table name.
func (Run) TableName() string { return "pipeline_runs" }

// Duration is the wall time between start and finish.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
