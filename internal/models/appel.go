package models

import "time"

// AppelDeFonds lance par un admin pour une annee donnee
type AppelDeFonds struct {
	ID            uint    `gorm:"primaryKey"`
	Annee         int     `gorm:"not null;index"`
	Montant       float64 `gorm:"not null"` // montant demande a chaque adherent actif
	Description   string
	AdminID       uint
	DateLancement string `gorm:"not null"` // format YYYY-MM-DD
	Cloture       bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (AppelDeFonds) TableName() string { return "appels_de_fonds" }
