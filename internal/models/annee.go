package models

import "time"

// Annee comptable - une seule active a la fois
type Annee struct {
	ID        uint `gorm:"primaryKey"`
	Annee     int  `gorm:"not null;uniqueIndex"`
	Active    bool `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
