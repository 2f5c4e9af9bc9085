package models

import "time"

// Depense liee a un deces, imputee a une annee
type Depense struct {
	ID                uint     `gorm:"primaryKey"`
	AnneeID           uint     `gorm:"not null;index"`
	Annee             Annee    `gorm:"foreignKey:AnneeID;constraint:OnDelete:CASCADE"`
	AdherentID        uint     `gorm:"not null;index"`
	Adherent          Adherent `gorm:"foreignKey:AdherentID;constraint:OnDelete:CASCADE"`
	DefuntEstAdherent bool     `gorm:"not null;default:false"`
	DefuntNom         string   // si le defunt est un proche
	DefuntRelation    string
	DateDeces         string `gorm:"not null;index"` // format YYYY-MM-DD
	PaysDestination   string
	TransportServices float64 `gorm:"not null;default:0"`
	BilletAvion       float64 `gorm:"not null;default:0"`
	Imam              float64 `gorm:"not null;default:0"`
	Mairie            float64 `gorm:"not null;default:0"`
	Autre1            float64 `gorm:"not null;default:0"`
	Autre2            float64 `gorm:"not null;default:0"`
	Autre3            float64 `gorm:"not null;default:0"`
	Montant           float64 `gorm:"not null;default:0"` // somme des postes, recalculee a l'ecriture
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NomDefunt retourne le nom du defunt (adherent precharge ou proche declare).
func (d Depense) NomDefunt() string {
	if d.DefuntEstAdherent {
		if d.Adherent.ID != 0 {
			return d.Adherent.NomComplet()
		}
		return "Inconnu"
	}
	if d.DefuntNom != "" {
		return d.DefuntNom
	}
	return "Inconnu"
}

// Postes retourne la valeur de chaque poste de frais, indexee par cle de config.
func (d Depense) Postes() map[string]float64 {
	return map[string]float64{
		"transport_services": d.TransportServices,
		"billet_avion":       d.BilletAvion,
		"imam":               d.Imam,
		"mairie":             d.Mairie,
		"autre1":             d.Autre1,
		"autre2":             d.Autre2,
		"autre3":             d.Autre3,
	}
}

// SetPoste affecte un poste par sa cle. Retourne false si la cle est inconnue.
func (d *Depense) SetPoste(cle string, valeur float64) bool {
	switch cle {
	case "transport_services":
		d.TransportServices = valeur
	case "billet_avion":
		d.BilletAvion = valeur
	case "imam":
		d.Imam = valeur
	case "mairie":
		d.Mairie = valeur
	case "autre1":
		d.Autre1 = valeur
	case "autre2":
		d.Autre2 = valeur
	case "autre3":
		d.Autre3 = valeur
	default:
		return false
	}
	return true
}
