package model

import "time"

// SettingsID is the fixed primary key of the settings singleton. The row is
// created on first initialization and only ever updated, never deleted.
const SettingsID = 1

// Settings holds the garage identity printed on invoices plus the backup
// destination. Exactly one row exists at all times (id = 1).
type Settings struct {
	ID                uint   `gorm:"primaryKey"`
	GarageName        string `gorm:"not null;default:''"`
	GarageAddress     string `gorm:"not null;default:''"`
	GaragePostalCode  string `gorm:"not null;default:''"`
	GaragePhone       string `gorm:"not null;default:''"`
	GarageSiret       string `gorm:"not null;default:''"`
	OnedriveBackupDir string `gorm:"not null;default:''"`
	LastBackupAt      *time.Time
}

func (Settings) TableName() string { return "settings" }
