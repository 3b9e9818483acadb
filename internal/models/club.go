package models

import "time"

// Club is a basketball club. Hidden is owned by operators and never touched by sync.
type Club struct {
	ID            int64     `gorm:"primaryKey;autoIncrement:false;comment:upstream vereinId"`
	Number        int64     `gorm:"not null;default:0;index;comment:club number"`
	Name          string    `gorm:"size:255;not null;comment:club name"`
	AssociationID int64     `gorm:"not null;default:0;comment:association id"`
	DistrictID    *int64    `gorm:"comment:district id"`
	RegionID      *int64    `gorm:"comment:region id"`
	Hidden        bool      `gorm:"not null;default:false;comment:visibility switch"`
	LastSeenAt    time.Time `gorm:"not null;comment:last time the club was referenced upstream"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (Club) TableName() string {
	return "clubs"
}
