package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/models"
)

// StatistiqueService compose les agregats du tableau de bord. Aucun etat
// persiste : tout est recalcule a chaque appel.
type StatistiqueService struct {
	DB     *gorm.DB
	Appels *AppelService
}

func NewStatistiqueService(db *gorm.DB) *StatistiqueService {
	return &StatistiqueService{DB: db, Appels: NewAppelService(db)}
}

// DashboardStats : agregats globaux du tableau de bord.
type DashboardStats struct {
	NbAdherentsActifs     int64   `json:"nb_adherents_actifs"`
	NbAppelsOuverts       int64   `json:"nb_appels_ouverts"`
	TotalCollecte         float64 `json:"total_collecte"`
	TotalAttendu          float64 `json:"total_attendu"`
	TotalDepenses         float64 `json:"total_depenses"`
	BalanceGlobale        float64 `json:"balance_globale"`
	TauxRecouvrement      float64 `json:"taux_recouvrement"`
	NbCotisationsImpayees int64   `json:"nb_cotisations_impayees"`
}

// Niveaux d'alerte
const (
	NiveauInfo     = "info"
	NiveauWarning  = "warning"
	NiveauCritique = "critique"
)

// Alerte : un signal calcule a partir des agregats courants.
type Alerte struct {
	Type    string `json:"type"`
	Niveau  string `json:"niveau"`
	Message string `json:"message"`
}

// Dashboard calcule les statistiques globales.
func (s *StatistiqueService) Dashboard() (DashboardStats, error) {
	var stats DashboardStats
	if err := s.DB.Model(&models.Adherent{}).Where("actif = ?", true).
		Count(&stats.NbAdherentsActifs).Error; err != nil {
		return stats, fmt.Errorf("count adherents actifs: %w", err)
	}
	if err := s.DB.Model(&models.AppelDeFonds{}).Where("cloture = ?", false).
		Count(&stats.NbAppelsOuverts).Error; err != nil {
		return stats, fmt.Errorf("count appels ouverts: %w", err)
	}
	type totaux struct {
		TotalAttendu  float64
		TotalCollecte float64
	}
	var t totaux
	if err := s.DB.Model(&models.Cotisation{}).
		Select("COALESCE(SUM(montant_du), 0) as total_attendu, COALESCE(SUM(montant_paye), 0) as total_collecte").
		Scan(&t).Error; err != nil {
		return stats, fmt.Errorf("totaux cotisations: %w", err)
	}
	stats.TotalAttendu = t.TotalAttendu
	stats.TotalCollecte = t.TotalCollecte
	if err := s.DB.Model(&models.Depense{}).
		Select("COALESCE(SUM(montant), 0)").Scan(&stats.TotalDepenses).Error; err != nil {
		return stats, fmt.Errorf("total depenses: %w", err)
	}
	stats.BalanceGlobale = stats.TotalCollecte - stats.TotalDepenses
	if stats.TotalAttendu > 0 {
		stats.TauxRecouvrement = stats.TotalCollecte / stats.TotalAttendu * 100
	}
	if err := s.DB.Model(&models.Cotisation{}).Where("statut <> ?", models.StatutPaye).
		Count(&stats.NbCotisationsImpayees).Error; err != nil {
		return stats, fmt.Errorf("count cotisations impayees: %w", err)
	}
	return stats, nil
}

// Alertes derive la liste des alertes des agregats courants.
func (s *StatistiqueService) Alertes() ([]Alerte, error) {
	var alertes []Alerte

	// Appels ouverts avec taux de recouvrement faible
	appels, err := s.Appels.Ouverts()
	if err != nil {
		return nil, err
	}
	for _, appel := range appels {
		st, err := s.Appels.Stats(appel.ID)
		if err != nil {
			return nil, err
		}
		if st.Taux < 50 && st.Total > 0 {
			desc := appel.Description
			if desc == "" {
				desc = "Sans description"
			}
			alertes = append(alertes, Alerte{
				Type:   "taux_faible",
				Niveau: NiveauWarning,
				Message: fmt.Sprintf("Appel %d (%s) : taux de recouvrement %.0f%%",
					appel.Annee, desc, st.Taux),
			})
		}
	}

	// Cotisations totalement impayees
	var nbNonPaye int64
	if err := s.DB.Model(&models.Cotisation{}).Where("statut = ?", models.StatutNonPaye).
		Count(&nbNonPaye).Error; err != nil {
		return nil, err
	}
	if nbNonPaye > 0 {
		alertes = append(alertes, Alerte{
			Type:    "cotisations_impayees",
			Niveau:  NiveauInfo,
			Message: fmt.Sprintf("%d cotisation(s) totalement impayee(s)", nbNonPaye),
		})
	}

	// Adherents actifs avec frais d'entree impayes
	var nbFrais int64
	if err := s.DB.Model(&models.Adherent{}).
		Where("frais_entree > 0 AND frais_entree_paye = ? AND actif = ?", false, true).
		Count(&nbFrais).Error; err != nil {
		return nil, err
	}
	if nbFrais > 0 {
		alertes = append(alertes, Alerte{
			Type:    "frais_entree_impayes",
			Niveau:  NiveauInfo,
			Message: fmt.Sprintf("%d adherent(s) avec frais d'entree impayes", nbFrais),
		})
	}

	// Balance globale negative
	stats, err := s.Dashboard()
	if err != nil {
		return nil, err
	}
	if stats.BalanceGlobale < 0 {
		alertes = append(alertes, Alerte{
			Type:   "balance_negative",
			Niveau: NiveauCritique,
			Message: fmt.Sprintf("Balance globale negative : %.2f %s",
				stats.BalanceGlobale, config.CurrencySymbol),
		})
	}
	return alertes, nil
}
