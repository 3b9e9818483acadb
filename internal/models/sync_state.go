package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState keeps one row per horizon with the outcome of its latest run.
type SyncState struct {
	Scope         string         `gorm:"primaryKey;size:32;comment:horizon token"`
	LastRunID     *string        `gorm:"size:36;comment:latest sync run"`
	LastSuccessAt *time.Time     `gorm:"comment:latest successful run"`
	LastAttemptAt *time.Time     `gorm:"comment:latest attempted run"`
	LastError     *string        `gorm:"type:text;comment:latest error"`
	StatsJSON     datatypes.JSON `gorm:"comment:latest run stats"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
