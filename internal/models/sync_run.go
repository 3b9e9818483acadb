package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SyncRunStatusOK     = "ok"
	SyncRunStatusFailed = "failed"
)

// SyncRun is the history row written at the end of every sync cycle.
type SyncRun struct {
	ID            string         `gorm:"primaryKey;size:36"`
	Horizon       string         `gorm:"size:8;not null;index"`
	Trigger       string         `gorm:"size:16;not null"`
	Status        string         `gorm:"size:16;not null;index"`
	StartedAt     time.Time      `gorm:"not null;index"`
	FinishedAt    time.Time      `gorm:"not null"`
	DurationMs    int64          `gorm:"not null;default:0"`
	ReportedTotal int            `gorm:"not null;default:0"`
	Collected     int            `gorm:"not null;default:0"`
	Created       int            `gorm:"not null;default:0"`
	Updated       int            `gorm:"not null;default:0"`
	Skipped       int            `gorm:"not null;default:0"`
	Deleted       int            `gorm:"not null;default:0"`
	Errored       int            `gorm:"not null;default:0"`
	Purged        int            `gorm:"not null;default:0"`
	Mismatch      bool           `gorm:"not null;default:false"`
	Error         *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"comment:skip reasons and record errors"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
