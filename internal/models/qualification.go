package models

import "time"

type Qualification struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false;comment:upstream srQualifikationId"`
	Label      string    `gorm:"size:255;not null;default:'';comment:label"`
	ShortLabel string    `gorm:"size:64;not null;default:'';comment:short label"`
	LastSeenAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Qualification) TableName() string {
	return "qualifications"
}
