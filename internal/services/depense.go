package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/models"
)

// DepenseService gere les depenses liees aux deces.
type DepenseService struct {
	DB     *gorm.DB
	Annees *AnneeService
}

func NewDepenseService(db *gorm.DB) *DepenseService {
	return &DepenseService{DB: db, Annees: NewAnneeService(db)}
}

// sommePostes additionne les postes configures, valeurs negatives ramenees
// a zero. La liste des postes vient de la config, jamais d'une enumeration
// en dur.
func sommePostes(d *models.Depense) float64 {
	valeurs := d.Postes()
	var total float64
	for _, poste := range config.PostesDepenses {
		v := valeurs[poste.Cle]
		if v < 0 {
			v = 0
			d.SetPoste(poste.Cle, 0)
		}
		total += v
	}
	return total
}

// Create enregistre la depense avec montant = somme des postes. Si le defunt
// est l'adherent et qu'il est encore actif, il est desactive avec date de
// sortie = date du deces.
func (s *DepenseService) Create(d *models.Depense) error {
	d.Montant = sommePostes(d)
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(d).Error; err != nil {
			return fmt.Errorf("create depense: %w", err)
		}
		var a models.Adherent
		if err := tx.First(&a, d.AdherentID).Error; err != nil {
			return err
		}
		if d.DefuntEstAdherent {
			if a.Actif {
				maj := map[string]any{"actif": false, "date_sortie": d.DateDeces}
				if err := tx.Model(&a).Updates(maj).Error; err != nil {
					return fmt.Errorf("desactiver adherent %d: %w", a.ID, err)
				}
			}
			desc := fmt.Sprintf("Deces de %s le %s", a.NomComplet(), d.DateDeces)
			return logHistorique(tx, a.ID, models.EvtDeces, desc, d.Montant, 0)
		}
		desc := fmt.Sprintf("Deces d'un proche (%s) : %s", d.DefuntRelation, d.NomDefunt())
		return logHistorique(tx, a.ID, models.EvtDecesProche, desc, d.Montant, 0)
	})
}

// Champs modifiables via Update. Les postes de frais viennent de la config.
func depenseChampsValides() map[string]bool {
	champs := map[string]bool{
		"adherent_id": true, "defunt_est_adherent": true, "defunt_nom": true,
		"defunt_relation": true, "date_deces": true, "pays_destination": true,
		"montant": true, "notes": true,
	}
	for _, poste := range config.PostesDepenses {
		champs[poste.Cle] = true
	}
	return champs
}

// Update applique les champs reconnus; le montant total n'est recalcule que
// si un poste de frais fait partie des champs modifies.
func (s *DepenseService) Update(id uint, champs map[string]any) (bool, error) {
	valides := depenseChampsValides()
	filtres := map[string]any{}
	for champ, valeur := range champs {
		if valides[champ] {
			filtres[champ] = valeur
		}
	}
	if len(filtres) == 0 {
		return false, nil
	}
	posteModifie := false
	for _, poste := range config.PostesDepenses {
		if _, ok := filtres[poste.Cle]; ok {
			posteModifie = true
			break
		}
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Depense{}).Where("id = ?", id).Updates(filtres)
		if res.Error != nil {
			return fmt.Errorf("update depense %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if !posteModifie {
			return nil
		}
		var d models.Depense
		if err := tx.First(&d, id).Error; err != nil {
			return err
		}
		return tx.Model(&d).Update("montant", sommePostes(&d)).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete supprime la depense. La balance de l'annee etant calculee a la
// lecture, rien d'autre a faire.
func (s *DepenseService) Delete(id uint) error {
	res := s.DB.Delete(&models.Depense{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete depense %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID retourne la depense avec adherent et annee precharges.
func (s *DepenseService) GetByID(id uint) (*models.Depense, error) {
	var d models.Depense
	if err := s.DB.Preload("Adherent").Preload("Annee").First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// PourAnnee retourne les depenses d'une annee, plus recente en premier.
func (s *DepenseService) PourAnnee(anneeID uint) ([]models.Depense, error) {
	var depenses []models.Depense
	err := s.DB.Preload("Adherent").Where("annee_id = ?", anneeID).
		Order("date_deces DESC, created_at DESC").Find(&depenses).Error
	return depenses, err
}

// List retourne toutes les depenses.
func (s *DepenseService) List() ([]models.Depense, error) {
	var depenses []models.Depense
	err := s.DB.Preload("Adherent").
		Order("date_deces DESC, created_at DESC").Find(&depenses).Error
	return depenses, err
}

// Dernieres retourne les dernieres depenses, annee optionnelle.
func (s *DepenseService) Dernieres(limit int, anneeID uint) ([]models.Depense, error) {
	if limit <= 0 {
		limit = 10
	}
	q := s.DB.Preload("Adherent").Order("date_deces DESC, created_at DESC").Limit(limit)
	if anneeID > 0 {
		q = q.Where("annee_id = ?", anneeID)
	}
	var depenses []models.Depense
	err := q.Find(&depenses).Error
	return depenses, err
}

// ParPeriode retourne les depenses entre deux dates ISO incluses.
func (s *DepenseService) ParPeriode(anneeID uint, debut, fin string) ([]models.Depense, error) {
	var depenses []models.Depense
	err := s.DB.Preload("Adherent").
		Where("annee_id = ? AND date_deces BETWEEN ? AND ?", anneeID, debut, fin).
		Order("date_deces DESC").Find(&depenses).Error
	return depenses, err
}

// PourAdherent retourne les depenses liees a un adherent.
func (s *DepenseService) PourAdherent(adherentID uint, anneeID uint) ([]models.Depense, error) {
	q := s.DB.Where("adherent_id = ?", adherentID)
	if anneeID > 0 {
		q = q.Where("annee_id = ?", anneeID)
	}
	var depenses []models.Depense
	err := q.Order("date_deces DESC").Find(&depenses).Error
	return depenses, err
}

// MoisStats : agregats d'un mois.
type MoisStats struct {
	Nombre int64   `json:"nombre"`
	Total  float64 `json:"total"`
}

var moisNoms = []string{
	"Janvier", "Fevrier", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Aout", "Septembre", "Octobre", "Novembre", "Decembre",
}

// ParMois groupe les depenses d'une annee par mois de deces. Tous les mois
// sont presents dans le resultat, a zero s'il ne s'est rien passe.
func (s *DepenseService) ParMois(anneeID uint) (map[string]MoisStats, error) {
	type ligne struct {
		Mois   string
		Nombre int64
		Total  float64
	}
	var lignes []ligne
	// date_deces est en ISO : le mois est toujours aux positions 6-7.
	err := s.DB.Model(&models.Depense{}).Where("annee_id = ?", anneeID).
		Select("substr(date_deces, 6, 2) as mois, COUNT(*) as nombre, COALESCE(SUM(montant), 0) as total").
		Group("mois").Scan(&lignes).Error
	if err != nil {
		return nil, fmt.Errorf("depenses par mois annee %d: %w", anneeID, err)
	}
	result := map[string]MoisStats{}
	for _, nom := range moisNoms {
		result[nom] = MoisStats{}
	}
	for _, l := range lignes {
		var num int
		fmt.Sscanf(l.Mois, "%d", &num)
		if num >= 1 && num <= 12 {
			result[moisNoms[num-1]] = MoisStats{Nombre: l.Nombre, Total: l.Total}
		}
	}
	return result, nil
}

// VerifierBalance indique si la balance de l'annee couvre le montant.
func (s *DepenseService) VerifierBalance(anneeID uint, montant float64) (bool, float64, error) {
	balance, err := s.Annees.Balance(anneeID)
	if err != nil {
		return false, 0, err
	}
	return balance >= montant, balance, nil
}
