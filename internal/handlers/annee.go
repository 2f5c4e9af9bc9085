package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/httpx"
	"github.com/diewo77/go-tontine/internal/services"
	"github.com/diewo77/go-tontine/validation"
	"github.com/diewo77/go-tontine/view"
)

type AnneeHandler struct {
	Annees   *services.AnneeService
	Appels   *services.AppelService
	Depenses *services.DepenseService
}

func NewAnneeHandler(db *gorm.DB) *AnneeHandler {
	return &AnneeHandler{
		Annees:   services.NewAnneeService(db),
		Appels:   services.NewAppelService(db),
		Depenses: services.NewDepenseService(db),
	}
}

// anneeLigne : une annee enrichie de ses agregats pour la liste.
type anneeLigne struct {
	ID       uint    `json:"id"`
	Annee    int     `json:"annee"`
	Active   bool    `json:"active"`
	Balance  float64 `json:"balance"`
	Depenses float64 `json:"depenses"`
	NbDeces  int64   `json:"nb_deces"`
}

// List repond a GET /annees : toutes les annees avec balance et depenses.
func (h *AnneeHandler) List(w http.ResponseWriter, r *http.Request) {
	annees, err := h.Annees.List()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "annees_list_failed", nil)
		return
	}
	lignes := make([]anneeLigne, 0, len(annees))
	for _, a := range annees {
		balance, err := h.Annees.Balance(a.ID)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "balance_failed", nil)
			return
		}
		depenses, err := h.Annees.TotalDepenses(a.ID)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "depenses_failed", nil)
			return
		}
		nb, err := h.Annees.NombreDepenses(a.ID)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "depenses_failed", nil)
			return
		}
		lignes = append(lignes, anneeLigne{
			ID: a.ID, Annee: a.Annee, Active: a.Active,
			Balance: balance, Depenses: depenses, NbDeces: nb,
		})
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := view.Render(w, r, "annees.html", map[string]any{"Annees": lignes}); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": lignes})
}

// Create repond a POST /annees.
func (h *AnneeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var annee int
	if isJSONBody(r) {
		var in struct {
			Annee int `json:"annee"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		annee = in.Annee
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		annee, _ = strconv.Atoi(r.FormValue("annee"))
	}
	v := validation.Violations{}
	validation.Year("annee", annee, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	a, err := h.Annees.Create(annee)
	if err != nil {
		if errors.Is(err, services.ErrAnneeExistante) {
			httpx.JSONError(w, http.StatusConflict, "annee_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "annee_create_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/annees", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

// Activate repond a POST /annees/{id}/activate : bascule l'annee active.
func (h *AnneeHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Annees.SetActive(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "annee_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "annee_activate_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/annees", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activated": id})
}

// Detail repond a GET /annees/{id} : annee, appels, depenses, balance.
func (h *AnneeHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	a, err := h.Annees.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "annee_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "annee_load_failed", nil)
		return
	}
	appels, err := h.Appels.PourAnnee(a.Annee)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "appels_load_failed", nil)
		return
	}
	depenses, err := h.Depenses.PourAnnee(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "depenses_load_failed", nil)
		return
	}
	balance, err := h.Annees.Balance(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "balance_failed", nil)
		return
	}
	parMois, err := h.Depenses.ParMois(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "depenses_load_failed", nil)
		return
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := map[string]any{
			"Annee":    a,
			"Appels":   appels,
			"Depenses": depenses,
			"Balance":  balance,
			"ParMois":  parMois,
		}
		if err := view.Render(w, r, "annee_detail.html", data); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"annee":    a,
		"appels":   appels,
		"depenses": depenses,
		"balance":  balance,
		"par_mois": parMois,
	})
}
