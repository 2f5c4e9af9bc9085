package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/models"
)

// CotisationService gere les cotisations et la regle de reconciliation
// paiement / statut.
type CotisationService struct {
	DB *gorm.DB
}

func NewCotisationService(db *gorm.DB) *CotisationService { return &CotisationService{DB: db} }

// PaiementInput : champs d'un paiement a enregistrer.
type PaiementInput struct {
	Montant           float64
	DatePaiement      string
	ModePaiement      string
	ReferencePaiement string
	AdminID           uint
	Notes             string
}

// EnregistrerPaiement cree la contribution, incremente montant_paye et
// rederive le statut, le tout dans une transaction. Le surpaiement est
// accepte : paye > du reste classe "paye".
func (s *CotisationService) EnregistrerPaiement(cotisationID uint, in PaiementInput) (*models.Contribution, error) {
	var contrib models.Contribution
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var cot models.Cotisation
		if err := tx.First(&cot, cotisationID).Error; err != nil {
			return err
		}
		contrib = models.Contribution{
			AdherentID:        cot.AdherentID,
			CotisationID:      &cot.ID,
			Montant:           in.Montant,
			DatePaiement:      in.DatePaiement,
			ModePaiement:      in.ModePaiement,
			ReferencePaiement: in.ReferencePaiement,
			AdminID:           in.AdminID,
			TypePaiement:      models.TypeCotisation,
			Notes:             in.Notes,
		}
		if err := tx.Create(&contrib).Error; err != nil {
			return fmt.Errorf("create contribution: %w", err)
		}
		nouveauPaye := cot.MontantPaye + in.Montant
		maj := map[string]any{
			"montant_paye": nouveauPaye,
			"statut":       models.StatutPour(nouveauPaye, cot.MontantDu),
		}
		if err := tx.Model(&cot).Updates(maj).Error; err != nil {
			return fmt.Errorf("update cotisation %d: %w", cotisationID, err)
		}
		desc := fmt.Sprintf("Paiement de %.2f %s (cotisation appel #%d)", in.Montant, config.CurrencySymbol, cot.AppelID)
		return logHistorique(tx, cot.AdherentID, models.EvtPaiement, desc, in.Montant, in.AdminID)
	})
	if err != nil {
		return nil, err
	}
	return &contrib, nil
}

// GetByID retourne la cotisation avec appel et adherent precharges.
func (s *CotisationService) GetByID(id uint) (*models.Cotisation, error) {
	var cot models.Cotisation
	if err := s.DB.Preload("Appel").Preload("Adherent").First(&cot, id).Error; err != nil {
		return nil, err
	}
	return &cot, nil
}

// PourAdherent retourne les cotisations d'un adherent, appel precharge,
// appel le plus recent en premier.
func (s *CotisationService) PourAdherent(adherentID uint) ([]models.Cotisation, error) {
	var cots []models.Cotisation
	err := s.DB.Preload("Appel").
		Joins("JOIN appels_de_fonds ON appels_de_fonds.id = cotisations.appel_id").
		Where("cotisations.adherent_id = ?", adherentID).
		Order("appels_de_fonds.date_lancement DESC").Find(&cots).Error
	return cots, err
}

// Impayees retourne les cotisations non soldees d'un adherent, plus
// ancienne en premier (on paie d'abord les vieux appels).
func (s *CotisationService) Impayees(adherentID uint) ([]models.Cotisation, error) {
	var cots []models.Cotisation
	err := s.DB.Preload("Appel").
		Joins("JOIN appels_de_fonds ON appels_de_fonds.id = cotisations.appel_id").
		Where("cotisations.adherent_id = ? AND cotisations.statut <> ?", adherentID, models.StatutPaye).
		Order("appels_de_fonds.date_lancement ASC").Find(&cots).Error
	return cots, err
}

// PourAppel retourne les cotisations d'un appel avec l'adherent precharge,
// triees par nom d'adherent.
func (s *CotisationService) PourAppel(appelID uint) ([]models.Cotisation, error) {
	var cots []models.Cotisation
	err := s.DB.Preload("Adherent").
		Joins("JOIN adherents ON adherents.id = cotisations.adherent_id").
		Where("cotisations.appel_id = ?", appelID).
		Order("adherents.nom, adherents.prenom").Find(&cots).Error
	return cots, err
}
