package services

import (
	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/models"
)

// HistoriqueService lit le journal d'evenements. L'ecriture passe par
// logHistorique pour rester dans la transaction de l'operation metier.
type HistoriqueService struct {
	DB *gorm.DB
}

func NewHistoriqueService(db *gorm.DB) *HistoriqueService { return &HistoriqueService{DB: db} }

// logHistorique ajoute une entree au journal. Jamais de mise a jour ni de
// suppression : le journal est en ecriture seule.
func logHistorique(tx *gorm.DB, adherentID uint, typeEvt, description string, montant float64, adminID uint) error {
	return tx.Create(&models.Historique{
		AdherentID:    adherentID,
		TypeEvenement: typeEvt,
		Description:   description,
		Montant:       montant,
		AdminID:       adminID,
	}).Error
}

// PourAdherent retourne l'historique complet d'un adherent, plus recent en premier.
func (s *HistoriqueService) PourAdherent(adherentID uint) ([]models.Historique, error) {
	var evts []models.Historique
	err := s.DB.Where("adherent_id = ?", adherentID).
		Order("created_at DESC, id DESC").Find(&evts).Error
	return evts, err
}

// Recents retourne les derniers evenements globaux avec l'adherent precharge.
func (s *HistoriqueService) Recents(limit int) ([]models.Historique, error) {
	if limit <= 0 {
		limit = 20
	}
	var evts []models.Historique
	err := s.DB.Preload("Adherent").
		Order("created_at DESC, id DESC").Limit(limit).Find(&evts).Error
	return evts, err
}
