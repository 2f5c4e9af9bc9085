package models

import "time"

// Types d'evenements de l'historique
const (
	EvtInscription   = "inscription"
	EvtFraisEntree   = "frais_entree"
	EvtPaiement      = "paiement_cotisation"
	EvtActivation    = "activation"
	EvtDesactivation = "desactivation"
	EvtDeces         = "deces"
	EvtDecesProche   = "deces_proche"
	EvtModification  = "modification"
)

// Historique : journal immuable des evenements par adherent
type Historique struct {
	ID            uint     `gorm:"primaryKey"`
	AdherentID    uint     `gorm:"not null;index"`
	Adherent      Adherent `gorm:"foreignKey:AdherentID;constraint:OnDelete:CASCADE"`
	TypeEvenement string   `gorm:"not null"`
	Description   string
	Montant       float64
	AdminID       uint
	CreatedAt     time.Time
}

func (Historique) TableName() string { return "historique" }

// Icone Bootstrap associee au type d'evenement.
func (h Historique) Icone() string {
	icones := map[string]string{
		EvtInscription:   "person-plus",
		EvtFraisEntree:   "cash",
		EvtPaiement:      "check-circle",
		EvtActivation:    "play-circle",
		EvtDesactivation: "pause-circle",
		EvtDeces:         "heart",
		EvtDecesProche:   "heart",
		EvtModification:  "pencil",
	}
	if ic, ok := icones[h.TypeEvenement]; ok {
		return ic
	}
	return "circle"
}

// Couleur Bootstrap associee au type d'evenement.
func (h Historique) Couleur() string {
	couleurs := map[string]string{
		EvtInscription:   "primary",
		EvtFraisEntree:   "info",
		EvtPaiement:      "success",
		EvtActivation:    "success",
		EvtDesactivation: "warning",
		EvtDeces:         "danger",
		EvtDecesProche:   "danger",
		EvtModification:  "secondary",
	}
	if c, ok := couleurs[h.TypeEvenement]; ok {
		return c
	}
	return "secondary"
}
