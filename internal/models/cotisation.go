package models

import "time"

// Statuts d'une cotisation
const (
	StatutNonPaye = "non_paye"
	StatutPartiel = "partiel"
	StatutPaye    = "paye"
)

// Cotisation : obligation d'un adherent pour un appel de fonds
type Cotisation struct {
	ID          uint         `gorm:"primaryKey"`
	AppelID     uint         `gorm:"not null;index"`
	Appel       AppelDeFonds `gorm:"foreignKey:AppelID;constraint:OnDelete:CASCADE"`
	AdherentID  uint         `gorm:"not null;index"`
	Adherent    Adherent     `gorm:"foreignKey:AdherentID;constraint:OnDelete:CASCADE"`
	MontantDu   float64      `gorm:"not null"`
	MontantPaye float64      `gorm:"not null;default:0"`
	Statut      string       `gorm:"not null;default:'non_paye'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResteAPayer retourne le montant restant, plancher a zero (surpaiement possible).
func (c Cotisation) ResteAPayer() float64 {
	if reste := c.MontantDu - c.MontantPaye; reste > 0 {
		return reste
	}
	return 0
}

// StatutPour derive le statut a partir des montants.
// L'ordre des tests suit la regle metier : paye des que paye >= du.
func StatutPour(paye, du float64) string {
	switch {
	case paye >= du:
		return StatutPaye
	case paye > 0:
		return StatutPartiel
	default:
		return StatutNonPaye
	}
}
