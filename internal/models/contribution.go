package models

import "time"

// Types de paiement
const (
	TypeCotisation  = "cotisation"
	TypeFraisEntree = "frais_entree"
)

// Contribution : un paiement enregistre, rattachable a une cotisation
type Contribution struct {
	ID                uint        `gorm:"primaryKey"`
	AdherentID        uint        `gorm:"not null;index"`
	Adherent          Adherent    `gorm:"foreignKey:AdherentID;constraint:OnDelete:CASCADE"`
	CotisationID      *uint       `gorm:"index"` // nul pour un paiement libre (ex: frais d'entree)
	Cotisation        *Cotisation `gorm:"foreignKey:CotisationID;constraint:OnDelete:SET NULL"`
	Montant           float64     `gorm:"not null"`
	DatePaiement      string      `gorm:"not null;index"` // format YYYY-MM-DD
	ModePaiement      string
	ReferencePaiement string
	AdminID           uint
	TypePaiement      string `gorm:"not null;default:'cotisation'"`
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
