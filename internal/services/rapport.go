package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/models"
)

// RapportService assemble les donnees des rapports. Pure composition de
// lectures, consommee par les handlers et la generation PDF.
type RapportService struct {
	DB            *gorm.DB
	Annees        *AnneeService
	Adherents     *AdherentService
	Contributions *ContributionService
	Depenses      *DepenseService
	Statistiques  *StatistiqueService
}

func NewRapportService(db *gorm.DB) *RapportService {
	return &RapportService{
		DB:            db,
		Annees:        NewAnneeService(db),
		Adherents:     NewAdherentService(db),
		Contributions: NewContributionService(db),
		Depenses:      NewDepenseService(db),
		Statistiques:  NewStatistiqueService(db),
	}
}

// RapportAnnuel : donnees completes d'une annee.
type RapportAnnuel struct {
	Annee            models.Annee          `json:"annee"`
	Statistiques     DashboardStats        `json:"statistiques"`
	Balance          float64               `json:"balance"`
	Contributions    []models.Contribution `json:"contributions"`
	Depenses         []models.Depense      `json:"depenses"`
	AdherentsNonPaye []models.Adherent     `json:"adherents_non_payes"`
	DateGeneration   string                `json:"date_generation"`
}

// Annuel genere le rapport complet d'une annee.
func (s *RapportService) Annuel(anneeID uint) (*RapportAnnuel, error) {
	annee, err := s.Annees.GetByID(anneeID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Statistiques.Dashboard()
	if err != nil {
		return nil, err
	}
	balance, err := s.Annees.Balance(anneeID)
	if err != nil {
		return nil, err
	}
	contributions, err := s.Contributions.PourAnnee(annee.Annee)
	if err != nil {
		return nil, err
	}
	depenses, err := s.Depenses.PourAnnee(anneeID)
	if err != nil {
		return nil, err
	}
	nonPayes, err := s.adherentsNonPayes(annee.Annee)
	if err != nil {
		return nil, err
	}
	return &RapportAnnuel{
		Annee:            *annee,
		Statistiques:     stats,
		Balance:          balance,
		Contributions:    contributions,
		Depenses:         depenses,
		AdherentsNonPaye: nonPayes,
		DateGeneration:   time.Now().Format(config.DateTimeFormat),
	}, nil
}

// adherentsNonPayes : adherents avec au moins une cotisation non soldee
// sur les appels de l'annee.
func (s *RapportService) adherentsNonPayes(annee int) ([]models.Adherent, error) {
	var adherents []models.Adherent
	err := s.DB.Model(&models.Adherent{}).Distinct("adherents.*").
		Joins("JOIN cotisations ON cotisations.adherent_id = adherents.id").
		Joins("JOIN appels_de_fonds ON appels_de_fonds.id = cotisations.appel_id").
		Where("appels_de_fonds.annee = ? AND cotisations.statut <> ?", annee, models.StatutPaye).
		Order("adherents.nom, adherents.prenom").
		Find(&adherents).Error
	return adherents, err
}

// RapportAdherent : situation complete d'un adherent.
type RapportAdherent struct {
	Adherent       models.Adherent       `json:"adherent"`
	Paiements      []models.Contribution `json:"paiements"`
	TotalPaye      float64               `json:"total_paye"`
	Depenses       []models.Depense      `json:"depenses"`
	DateGeneration string                `json:"date_generation"`
}

// Adherent genere le rapport d'un adherent, annee optionnelle (0 = toutes).
func (s *RapportService) Adherent(adherentID uint, annee int) (*RapportAdherent, error) {
	adherent, err := s.Adherents.GetByID(adherentID)
	if err != nil {
		return nil, err
	}
	paiements, err := s.Contributions.PourAdherent(adherentID, annee)
	if err != nil {
		return nil, err
	}
	total, err := s.Contributions.TotalPourAdherent(adherentID, annee)
	if err != nil {
		return nil, err
	}
	depenses, err := s.Depenses.PourAdherent(adherentID, 0)
	if err != nil {
		return nil, err
	}
	return &RapportAdherent{
		Adherent:       *adherent,
		Paiements:      paiements,
		TotalPaye:      total,
		Depenses:       depenses,
		DateGeneration: time.Now().Format(config.DateTimeFormat),
	}, nil
}

// RapportContributions : paiements d'une annee avec totaux.
type RapportContributions struct {
	Annee          models.Annee          `json:"annee"`
	Contributions  []models.Contribution `json:"contributions"`
	Total          float64               `json:"total"`
	DateGeneration string                `json:"date_generation"`
}

// ContributionsAnnee genere le rapport des paiements d'une annee.
func (s *RapportService) ContributionsAnnee(anneeID uint) (*RapportContributions, error) {
	annee, err := s.Annees.GetByID(anneeID)
	if err != nil {
		return nil, err
	}
	contributions, err := s.Contributions.PourAnnee(annee.Annee)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, c := range contributions {
		total += c.Montant
	}
	return &RapportContributions{
		Annee:          *annee,
		Contributions:  contributions,
		Total:          total,
		DateGeneration: time.Now().Format(config.DateTimeFormat),
	}, nil
}
