package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/models"
)

// AppelService gere les appels de fonds et leur fan-out en cotisations.
type AppelService struct {
	DB *gorm.DB
}

func NewAppelService(db *gorm.DB) *AppelService { return &AppelService{DB: db} }

// AppelStats : agregats d'un appel de fonds.
type AppelStats struct {
	Total         int64   `json:"total"`
	NbPaye        int64   `json:"nb_paye"`
	NbPartiel     int64   `json:"nb_partiel"`
	NbNonPaye     int64   `json:"nb_non_paye"`
	TotalCollecte float64 `json:"total_collecte"`
	TotalAttendu  float64 `json:"total_attendu"`
	Taux          float64 `json:"taux"`
}

// Create insere l'appel puis genere une cotisation par adherent actif, avec
// une entree d'historique chacun. Tout ou rien : la transaction englobe le
// fan-out complet.
func (s *AppelService) Create(annee int, montant float64, description string, adminID uint, dateLancement string) (*models.AppelDeFonds, error) {
	if dateLancement == "" {
		dateLancement = time.Now().Format(config.ISODateFormat)
	}
	appel := models.AppelDeFonds{
		Annee:         annee,
		Montant:       montant,
		Description:   description,
		AdminID:       adminID,
		DateLancement: dateLancement,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&appel).Error; err != nil {
			return fmt.Errorf("create appel: %w", err)
		}
		var adherents []models.Adherent
		if err := tx.Where("actif = ?", true).Order("nom, prenom").Find(&adherents).Error; err != nil {
			return fmt.Errorf("list adherents actifs: %w", err)
		}
		for _, a := range adherents {
			cot := models.Cotisation{
				AppelID:    appel.ID,
				AdherentID: a.ID,
				MontantDu:  montant,
				Statut:     models.StatutNonPaye,
			}
			if err := tx.Create(&cot).Error; err != nil {
				return fmt.Errorf("create cotisation adherent %d: %w", a.ID, err)
			}
			desc := fmt.Sprintf("Appel de fonds %d : %.2f %s a payer", annee, montant, config.CurrencySymbol)
			if err := logHistorique(tx, a.ID, models.EvtPaiement, desc, montant, adminID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &appel, nil
}

// Cloturer marque l'appel comme cloture. Pas d'operation inverse.
func (s *AppelService) Cloturer(id uint) error {
	res := s.DB.Model(&models.AppelDeFonds{}).Where("id = ?", id).Update("cloture", true)
	if res.Error != nil {
		return fmt.Errorf("cloturer appel %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID retourne un appel ou gorm.ErrRecordNotFound.
func (s *AppelService) GetByID(id uint) (*models.AppelDeFonds, error) {
	var appel models.AppelDeFonds
	if err := s.DB.First(&appel, id).Error; err != nil {
		return nil, err
	}
	return &appel, nil
}

// List retourne tous les appels, plus recent en premier.
func (s *AppelService) List() ([]models.AppelDeFonds, error) {
	var appels []models.AppelDeFonds
	err := s.DB.Order("date_lancement DESC, id DESC").Find(&appels).Error
	return appels, err
}

// PourAnnee retourne les appels d'une annee.
func (s *AppelService) PourAnnee(annee int) ([]models.AppelDeFonds, error) {
	var appels []models.AppelDeFonds
	err := s.DB.Where("annee = ?", annee).
		Order("date_lancement DESC, id DESC").Find(&appels).Error
	return appels, err
}

// Ouverts retourne les appels non clotures.
func (s *AppelService) Ouverts() ([]models.AppelDeFonds, error) {
	var appels []models.AppelDeFonds
	err := s.DB.Where("cloture = ?", false).
		Order("date_lancement DESC, id DESC").Find(&appels).Error
	return appels, err
}

// Stats agrege les cotisations de l'appel. Taux a zero quand rien n'est attendu.
func (s *AppelService) Stats(appelID uint) (AppelStats, error) {
	var stats AppelStats
	err := s.DB.Model(&models.Cotisation{}).Where("appel_id = ?", appelID).
		Select(`COUNT(*) as total,
			COALESCE(SUM(CASE WHEN statut = 'paye' THEN 1 ELSE 0 END), 0) as nb_paye,
			COALESCE(SUM(CASE WHEN statut = 'partiel' THEN 1 ELSE 0 END), 0) as nb_partiel,
			COALESCE(SUM(CASE WHEN statut = 'non_paye' THEN 1 ELSE 0 END), 0) as nb_non_paye,
			COALESCE(SUM(montant_paye), 0) as total_collecte,
			COALESCE(SUM(montant_du), 0) as total_attendu`).
		Scan(&stats).Error
	if err != nil {
		return AppelStats{}, fmt.Errorf("stats appel %d: %w", appelID, err)
	}
	if stats.TotalAttendu > 0 {
		stats.Taux = stats.TotalCollecte / stats.TotalAttendu * 100
	}
	return stats, nil
}
