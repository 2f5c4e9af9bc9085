package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/httpx"
	"github.com/diewo77/go-tontine/internal/services"
	"github.com/diewo77/go-tontine/view"
)

type DashboardHandler struct {
	Statistiques  *services.StatistiqueService
	Historique    *services.HistoriqueService
	Contributions *services.ContributionService
	Depenses      *services.DepenseService
	Annees        *services.AnneeService
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		Statistiques:  services.NewStatistiqueService(db),
		Historique:    services.NewHistoriqueService(db),
		Contributions: services.NewContributionService(db),
		Depenses:      services.NewDepenseService(db),
		Annees:        services.NewAnneeService(db),
	}
}

// Show repond a GET /dashboard (et GET /) : agregats, alertes et activite
// recente.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Statistiques.Dashboard()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
		return
	}
	alertes, err := h.Statistiques.Alertes()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "alertes_failed", nil)
		return
	}
	evenements, err := h.Historique.Recents(10)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "historique_failed", nil)
		return
	}
	paiements, err := h.Contributions.Dernieres(5)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "contributions_failed", nil)
		return
	}
	depenses, err := h.Depenses.Dernieres(5, 0)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "depenses_failed", nil)
		return
	}
	anneeActive, _ := h.Annees.GetActive()
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := map[string]any{
			"Stats":       stats,
			"Alertes":     alertes,
			"Evenements":  evenements,
			"Paiements":   paiements,
			"Depenses":    depenses,
			"AnneeActive": anneeActive,
		}
		if err := view.Render(w, r, "dashboard.html", data); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"stats":        stats,
		"alertes":      alertes,
		"evenements":   evenements,
		"paiements":    paiements,
		"depenses":     depenses,
		"annee_active": anneeActive,
	})
}

type RapportHandler struct {
	Rapports *services.RapportService
}

func NewRapportHandler(db *gorm.DB) *RapportHandler {
	return &RapportHandler{Rapports: services.NewRapportService(db)}
}

// Annuel repond a GET /rapports/annees/{id}.
func (h *RapportHandler) Annuel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	rapport, err := h.Rapports.Annuel(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "annee_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "rapport_failed", nil)
		return
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := view.Render(w, r, "rapport_annuel.html", map[string]any{"Rapport": rapport}); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, rapport)
}

// Adherent repond a GET /rapports/adherents/{id}?annee=YYYY.
func (h *RapportHandler) Adherent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	annee, _ := strconv.Atoi(r.URL.Query().Get("annee"))
	rapport, err := h.Rapports.Adherent(id, annee)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "adherent_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "rapport_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, rapport)
}

// Contributions repond a GET /rapports/contributions/{id} (id d'annee).
func (h *RapportHandler) Contributions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	rapport, err := h.Rapports.ContributionsAnnee(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "annee_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "rapport_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, rapport)
}
