package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/httpx"
	"github.com/diewo77/go-tontine/internal/models"
	"github.com/diewo77/go-tontine/internal/services"
	"github.com/diewo77/go-tontine/validation"
	"github.com/diewo77/go-tontine/view"
)

type AppelHandler struct {
	Appels      *services.AppelService
	Cotisations *services.CotisationService
	Annees      *services.AnneeService
}

func NewAppelHandler(db *gorm.DB) *AppelHandler {
	return &AppelHandler{
		Appels:      services.NewAppelService(db),
		Cotisations: services.NewCotisationService(db),
		Annees:      services.NewAnneeService(db),
	}
}

// appelLigne : un appel enrichi de ses stats pour la liste.
type appelLigne struct {
	Appel models.AppelDeFonds `json:"appel"`
	Stats services.AppelStats `json:"stats"`
}

// List repond a GET /appels, filtre annee optionnel.
func (h *AppelHandler) List(w http.ResponseWriter, r *http.Request) {
	var appels []models.AppelDeFonds
	var err error
	if y := r.URL.Query().Get("annee"); y != "" {
		annee, _ := strconv.Atoi(y)
		appels, err = h.Appels.PourAnnee(annee)
	} else {
		appels, err = h.Appels.List()
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "appels_list_failed", nil)
		return
	}
	lignes := make([]appelLigne, 0, len(appels))
	for _, a := range appels {
		stats, err := h.Appels.Stats(a.ID)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "appel_stats_failed", nil)
			return
		}
		lignes = append(lignes, appelLigne{Appel: a, Stats: stats})
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := view.Render(w, r, "appels.html", map[string]any{"Appels": lignes}); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": lignes})
}

type appelInput struct {
	Annee         int     `json:"annee"`
	Montant       float64 `json:"montant"`
	Description   string  `json:"description"`
	AdminID       uint    `json:"admin_id"`
	DateLancement string  `json:"date_lancement"`
}

// Create repond a POST /appels : cree l'appel et genere les cotisations
// de tous les adherents actifs.
func (h *AppelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in appelInput
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		annee, _ := strconv.Atoi(r.FormValue("annee"))
		in = appelInput{
			Annee:         annee,
			Montant:       formFloat(r, "montant"),
			Description:   r.FormValue("description"),
			AdminID:       formUint(r, "admin_id"),
			DateLancement: r.FormValue("date_lancement"),
		}
	}
	// Annee absente : on retombe sur l'annee active.
	if in.Annee == 0 {
		if active, err := h.Annees.GetActive(); err == nil {
			in.Annee = active.Annee
		}
	}
	v := validation.Violations{}
	validation.Year("annee", in.Annee, v)
	validation.PositiveFloat("montant", in.Montant, v)
	validation.ISODate("date_lancement", in.DateLancement, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	appel, err := h.Appels.Create(in.Annee, in.Montant, in.Description, in.AdminID, in.DateLancement)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "appel_create_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/appels", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, appel)
}

// Detail repond a GET /appels/{id} : appel, stats et cotisations.
func (h *AppelHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	appel, err := h.Appels.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "appel_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "appel_load_failed", nil)
		return
	}
	stats, err := h.Appels.Stats(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "appel_stats_failed", nil)
		return
	}
	cotisations, err := h.Cotisations.PourAppel(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "cotisations_load_failed", nil)
		return
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := map[string]any{"Appel": appel, "Stats": stats, "Cotisations": cotisations}
		if err := view.Render(w, r, "appel_detail.html", data); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"appel":       appel,
		"stats":       stats,
		"cotisations": cotisations,
	})
}

// Cloturer repond a POST /appels/{id}/cloturer.
func (h *AppelHandler) Cloturer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Appels.Cloturer(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "appel_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "appel_cloture_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/appels", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cloture": id})
}
