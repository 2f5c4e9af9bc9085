package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/models"
)

// ErrAnneeExistante : tentative de creation d'une annee deja enregistree.
var ErrAnneeExistante = errors.New("annee deja existante")

// AnneeService gere les annees comptables.
type AnneeService struct {
	DB *gorm.DB
}

func NewAnneeService(db *gorm.DB) *AnneeService { return &AnneeService{DB: db} }

// Create enregistre une nouvelle annee (inactive par defaut).
func (s *AnneeService) Create(annee int) (*models.Annee, error) {
	var count int64
	if err := s.DB.Model(&models.Annee{}).Where("annee = ?", annee).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check annee %d: %w", annee, err)
	}
	if count > 0 {
		return nil, ErrAnneeExistante
	}
	a := models.Annee{Annee: annee}
	if err := s.DB.Create(&a).Error; err != nil {
		return nil, fmt.Errorf("create annee %d: %w", annee, err)
	}
	return &a, nil
}

// SetActive active l'annee cible et desactive toutes les autres, dans une
// seule transaction : jamais zero ni deux annees actives visibles.
func (s *AnneeService) SetActive(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var a models.Annee
		if err := tx.First(&a, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Annee{}).Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("clear active annees: %w", err)
		}
		if err := tx.Model(&a).Update("active", true).Error; err != nil {
			return fmt.Errorf("activate annee %d: %w", id, err)
		}
		return nil
	})
}

// GetByID retourne une annee ou gorm.ErrRecordNotFound.
func (s *AnneeService) GetByID(id uint) (*models.Annee, error) {
	var a models.Annee
	if err := s.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActive retourne l'annee active, ou gorm.ErrRecordNotFound si aucune.
func (s *AnneeService) GetActive() (*models.Annee, error) {
	var a models.Annee
	if err := s.DB.Where("active = ?", true).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByYear retourne l'annee portant ce millesime.
func (s *AnneeService) GetByYear(annee int) (*models.Annee, error) {
	var a models.Annee
	if err := s.DB.Where("annee = ?", annee).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// List retourne toutes les annees, la plus recente en premier.
func (s *AnneeService) List() ([]models.Annee, error) {
	var annees []models.Annee
	err := s.DB.Order("annee DESC").Find(&annees).Error
	return annees, err
}

// TotalDepenses retourne la somme des depenses imputees a l'annee.
func (s *AnneeService) TotalDepenses(anneeID uint) (float64, error) {
	var total float64
	err := s.DB.Model(&models.Depense{}).Where("annee_id = ?", anneeID).
		Select("COALESCE(SUM(montant), 0)").Scan(&total).Error
	return total, err
}

// NombreDepenses retourne le nombre de deces enregistres pour l'annee.
func (s *AnneeService) NombreDepenses(anneeID uint) (int64, error) {
	var n int64
	err := s.DB.Model(&models.Depense{}).Where("annee_id = ?", anneeID).Count(&n).Error
	return n, err
}

// Balance calcule collecte - depenses pour l'annee, a la lecture.
// Rien n'est stocke : pas de recalcul a oublier cote ecriture.
func (s *AnneeService) Balance(anneeID uint) (float64, error) {
	var a models.Annee
	if err := s.DB.First(&a, anneeID).Error; err != nil {
		return 0, err
	}
	var collecte float64
	err := s.DB.Model(&models.Cotisation{}).
		Joins("JOIN appels_de_fonds ON appels_de_fonds.id = cotisations.appel_id").
		Where("appels_de_fonds.annee = ?", a.Annee).
		Select("COALESCE(SUM(cotisations.montant_paye), 0)").Scan(&collecte).Error
	if err != nil {
		return 0, fmt.Errorf("balance annee %d: %w", a.Annee, err)
	}
	depenses, err := s.TotalDepenses(anneeID)
	if err != nil {
		return 0, err
	}
	return collecte - depenses, nil
}
