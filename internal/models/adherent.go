package models

import "time"

// Adherent de la tontine
type Adherent struct {
	ID              uint   `gorm:"primaryKey"`
	Nom             string `gorm:"not null;index"`
	Prenom          string `gorm:"not null"`
	Telephone       string
	Email           string
	Adresse         string
	DateEntree      string  // format YYYY-MM-DD
	DateSortie      string  // renseignee a la sortie ou au deces
	Actif           bool    `gorm:"not null;default:true;index"`
	FraisEntree     float64 `gorm:"not null;default:0"`
	FraisEntreePaye bool    `gorm:"not null;default:true"` // pas de frais = considere paye
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NomComplet retourne "Prenom Nom".
func (a Adherent) NomComplet() string { return a.Prenom + " " + a.Nom }
