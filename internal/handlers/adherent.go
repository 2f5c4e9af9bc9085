package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/httpx"
	"github.com/diewo77/go-tontine/internal/models"
	"github.com/diewo77/go-tontine/internal/services"
	"github.com/diewo77/go-tontine/validation"
	"github.com/diewo77/go-tontine/view"
)

type AdherentHandler struct {
	Adherents     *services.AdherentService
	Cotisations   *services.CotisationService
	Contributions *services.ContributionService
	Historique    *services.HistoriqueService
}

func NewAdherentHandler(db *gorm.DB) *AdherentHandler {
	return &AdherentHandler{
		Adherents:     services.NewAdherentService(db),
		Cotisations:   services.NewCotisationService(db),
		Contributions: services.NewContributionService(db),
		Historique:    services.NewHistoriqueService(db),
	}
}

// List repond a GET /adherents : liste complete, filtre actifs ou recherche.
func (h *AdherentHandler) List(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var adherents []models.Adherent
	var err error
	if query != "" {
		adherents, err = h.Adherents.Search(query)
	} else {
		adherents, err = h.Adherents.List(r.URL.Query().Get("actifs") == "1")
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "adherents_list_failed", nil)
		return
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := map[string]any{"Adherents": adherents, "Query": query}
		if err := view.Render(w, r, "adherents.html", data); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": adherents, "total": len(adherents)})
}

type adherentInput struct {
	Nom         string  `json:"nom"`
	Prenom      string  `json:"prenom"`
	Telephone   string  `json:"telephone"`
	Email       string  `json:"email"`
	Adresse     string  `json:"adresse"`
	DateEntree  string  `json:"date_entree"`
	FraisEntree float64 `json:"frais_entree"`
	Notes       string  `json:"notes"`
}

func (in adherentInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("nom", in.Nom, v)
	validation.Required("prenom", in.Prenom, v)
	validation.ISODate("date_entree", in.DateEntree, v)
	return v
}

// Create repond a POST /adherents (JSON ou formulaire).
func (h *AdherentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in adherentInput
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
		in = adherentInput{
			Nom:         strings.TrimSpace(r.FormValue("nom")),
			Prenom:      strings.TrimSpace(r.FormValue("prenom")),
			Telephone:   strings.TrimSpace(r.FormValue("telephone")),
			Email:       strings.TrimSpace(r.FormValue("email")),
			Adresse:     r.FormValue("adresse"),
			DateEntree:  r.FormValue("date_entree"),
			FraisEntree: formFloat(r, "frais_entree"),
			Notes:       r.FormValue("notes"),
		}
	}
	if v := in.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	a := models.Adherent{
		Nom: in.Nom, Prenom: in.Prenom, Telephone: in.Telephone,
		Email: in.Email, Adresse: in.Adresse, DateEntree: in.DateEntree,
		FraisEntree: in.FraisEntree, Actif: true, Notes: in.Notes,
	}
	if err := h.Adherents.Create(&a); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "adherent_create_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/adherents", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

// Detail repond a GET /adherents/{id} : fiche avec cotisations, paiements
// et historique.
func (h *AdherentHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	a, err := h.Adherents.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "adherent_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "adherent_load_failed", nil)
		return
	}
	cotisations, err := h.Cotisations.PourAdherent(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "cotisations_load_failed", nil)
		return
	}
	paiements, err := h.Contributions.PourAdherent(id, 0)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "paiements_load_failed", nil)
		return
	}
	total, err := h.Contributions.TotalPourAdherent(id, 0)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "paiements_load_failed", nil)
		return
	}
	historique, err := h.Historique.PourAdherent(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "historique_load_failed", nil)
		return
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := map[string]any{
			"Adherent":    a,
			"Cotisations": cotisations,
			"Paiements":   paiements,
			"TotalPaye":   total,
			"Historique":  historique,
		}
		if err := view.Render(w, r, "adherent_detail.html", data); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"adherent":    a,
		"cotisations": cotisations,
		"paiements":   paiements,
		"total_paye":  total,
		"historique":  historique,
	})
}

// Update repond a POST/PUT/PATCH /adherents/{id}/update.
func (h *AdherentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	champs := map[string]any{}
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&champs); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		for _, champ := range []string{"nom", "prenom", "telephone", "email", "adresse", "date_entree", "date_sortie", "notes"} {
			if v := r.FormValue(champ); v != "" {
				champs[champ] = v
			}
		}
		if v := r.FormValue("frais_entree"); v != "" {
			champs["frais_entree"] = formFloat(r, "frais_entree")
		}
	}
	v := validation.Violations{}
	if d, ok := champs["date_entree"].(string); ok {
		validation.ISODate("date_entree", d, v)
	}
	if d, ok := champs["date_sortie"].(string); ok {
		validation.ISODate("date_sortie", d, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	applied, err := h.Adherents.Update(id, champs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "adherent_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "adherent_update_failed", nil)
		return
	}
	if !applied {
		httpx.JSONError(w, http.StatusBadRequest, "no_valid_fields", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/adherents", http.StatusSeeOther)
		return
	}
	a, err := h.Adherents.GetByID(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "adherent_load_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

// Toggle repond a POST /adherents/{id}/toggle : active/desactive.
func (h *AdherentHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	a, err := h.Adherents.Toggle(id, formUint(r, "admin_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "adherent_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "adherent_toggle_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/adherents", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

// Delete repond a POST/DELETE /adherents/{id}/delete. Les donnees liees
// partent en cascade.
func (h *AdherentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Adherents.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "adherent_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "adherent_delete_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/adherents", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// CotisationsImpayees repond a GET /api/adherents/{id}/cotisations-impayees :
// alimente le select du formulaire de paiement.
func (h *AdherentHandler) CotisationsImpayees(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	cots, err := h.Cotisations.Impayees(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "cotisations_load_failed", nil)
		return
	}
	type item struct {
		ID          uint    `json:"id"`
		Annee       int     `json:"annee"`
		Description string  `json:"description"`
		MontantDu   float64 `json:"montant_du"`
		MontantPaye float64 `json:"montant_paye"`
		Reste       float64 `json:"reste"`
		Statut      string  `json:"statut"`
	}
	items := make([]item, 0, len(cots))
	for _, c := range cots {
		items = append(items, item{
			ID:          c.ID,
			Annee:       c.Appel.Annee,
			Description: c.Appel.Description,
			MontantDu:   c.MontantDu,
			MontantPaye: c.MontantPaye,
			Reste:       c.ResteAPayer(),
			Statut:      c.Statut,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}
