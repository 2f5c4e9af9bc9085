package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/models"
)

// ContributionService gere les paiements independamment des cotisations.
type ContributionService struct {
	DB *gorm.DB
}

func NewContributionService(db *gorm.DB) *ContributionService { return &ContributionService{DB: db} }

// Create insere un paiement tel quel, sans toucher aux cotisations.
// Les paiements de cotisation passent par CotisationService.EnregistrerPaiement.
func (s *ContributionService) Create(c *models.Contribution) error {
	if c.TypePaiement == "" {
		c.TypePaiement = models.TypeCotisation
	}
	if err := s.DB.Create(c).Error; err != nil {
		return fmt.Errorf("create contribution: %w", err)
	}
	return nil
}

// PayerFraisEntree enregistre le paiement des frais d'entree : contribution
// libre + bascule du drapeau frais_entree_paye. Le montant reellement verse
// vit dans la contribution; l'adherent ne porte qu'un booleen (pas de
// paiement partiel de frais d'entree).
func (s *ContributionService) PayerFraisEntree(adherentID uint, in PaiementInput) (*models.Contribution, error) {
	var contrib models.Contribution
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var a models.Adherent
		if err := tx.First(&a, adherentID).Error; err != nil {
			return err
		}
		contrib = models.Contribution{
			AdherentID:        a.ID,
			Montant:           in.Montant,
			DatePaiement:      in.DatePaiement,
			ModePaiement:      in.ModePaiement,
			ReferencePaiement: in.ReferencePaiement,
			AdminID:           in.AdminID,
			TypePaiement:      models.TypeFraisEntree,
			Notes:             in.Notes,
		}
		if err := tx.Create(&contrib).Error; err != nil {
			return fmt.Errorf("create contribution frais: %w", err)
		}
		if err := tx.Model(&a).Update("frais_entree_paye", true).Error; err != nil {
			return fmt.Errorf("marquer frais payes adherent %d: %w", adherentID, err)
		}
		desc := fmt.Sprintf("Paiement frais d'entree : %.2f %s", in.Montant, config.CurrencySymbol)
		return logHistorique(tx, a.ID, models.EvtFraisEntree, desc, in.Montant, in.AdminID)
	})
	if err != nil {
		return nil, err
	}
	return &contrib, nil
}

// Delete supprime un paiement. S'il est lie a une cotisation, le montant
// paye de celle-ci est d'abord reduit (plancher zero) et son statut
// rederive, puis la ligne est supprimee - dans cet ordre, le recalcul a
// besoin du montant retire.
func (s *ContributionService) Delete(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var contrib models.Contribution
		if err := tx.First(&contrib, id).Error; err != nil {
			return err
		}
		if contrib.CotisationID != nil {
			var cot models.Cotisation
			if err := tx.First(&cot, *contrib.CotisationID).Error; err == nil {
				nouveauPaye := cot.MontantPaye - contrib.Montant
				if nouveauPaye < 0 {
					nouveauPaye = 0
				}
				maj := map[string]any{
					"montant_paye": nouveauPaye,
					"statut":       models.StatutPour(nouveauPaye, cot.MontantDu),
				}
				if err := tx.Model(&cot).Updates(maj).Error; err != nil {
					return fmt.Errorf("rollback cotisation %d: %w", cot.ID, err)
				}
			}
		}
		if err := tx.Delete(&contrib).Error; err != nil {
			return fmt.Errorf("delete contribution %d: %w", id, err)
		}
		return nil
	})
}

// Champs modifiables via Update.
var contributionChampsValides = map[string]bool{
	"montant": true, "date_paiement": true, "mode_paiement": true,
	"reference_paiement": true, "admin_id": true, "notes": true,
}

// Update applique les champs reconnus; false si rien a appliquer.
// Le montant d'une contribution liee ne se corrige pas ici : supprimer puis
// re-enregistrer pour garder la cotisation coherente.
func (s *ContributionService) Update(id uint, champs map[string]any) (bool, error) {
	filtres := map[string]any{}
	for champ, valeur := range champs {
		if contributionChampsValides[champ] {
			filtres[champ] = valeur
		}
	}
	if len(filtres) == 0 {
		return false, nil
	}
	res := s.DB.Model(&models.Contribution{}).Where("id = ?", id).Updates(filtres)
	if res.Error != nil {
		return false, fmt.Errorf("update contribution %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return true, nil
}

// GetByID retourne la contribution avec l'adherent precharge.
func (s *ContributionService) GetByID(id uint) (*models.Contribution, error) {
	var c models.Contribution
	if err := s.DB.Preload("Adherent").Preload("Cotisation").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Dernieres retourne les derniers paiements, adherent precharge.
func (s *ContributionService) Dernieres(limit int) ([]models.Contribution, error) {
	if limit <= 0 {
		limit = 10
	}
	var contribs []models.Contribution
	err := s.DB.Preload("Adherent").
		Order("date_paiement DESC, created_at DESC").Limit(limit).Find(&contribs).Error
	return contribs, err
}

// PourAdherent retourne les paiements d'un adherent, filtres par annee si
// annee > 0 (les dates sont stockees en ISO, le prefixe suffit).
func (s *ContributionService) PourAdherent(adherentID uint, annee int) ([]models.Contribution, error) {
	q := s.DB.Where("adherent_id = ?", adherentID)
	if annee > 0 {
		q = q.Where("date_paiement LIKE ?", fmt.Sprintf("%d-%%", annee))
	}
	var contribs []models.Contribution
	err := q.Order("date_paiement DESC").Find(&contribs).Error
	return contribs, err
}

// TotalPourAdherent calcule le total paye par un adherent, annee optionnelle.
func (s *ContributionService) TotalPourAdherent(adherentID uint, annee int) (float64, error) {
	q := s.DB.Model(&models.Contribution{}).Where("adherent_id = ?", adherentID)
	if annee > 0 {
		q = q.Where("date_paiement LIKE ?", fmt.Sprintf("%d-%%", annee))
	}
	var total float64
	err := q.Select("COALESCE(SUM(montant), 0)").Scan(&total).Error
	return total, err
}

// PourAnnee retourne tous les paiements d'une annee civile, adherent precharge.
func (s *ContributionService) PourAnnee(annee int) ([]models.Contribution, error) {
	var contribs []models.Contribution
	err := s.DB.Preload("Adherent").
		Where("date_paiement LIKE ?", fmt.Sprintf("%d-%%", annee)).
		Order("date_paiement DESC").Find(&contribs).Error
	return contribs, err
}
