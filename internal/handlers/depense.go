package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/httpx"
	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/models"
	"github.com/diewo77/go-tontine/internal/services"
	"github.com/diewo77/go-tontine/pdf"
	"github.com/diewo77/go-tontine/validation"
	"github.com/diewo77/go-tontine/view"
)

type DepenseHandler struct {
	Depenses  *services.DepenseService
	Annees    *services.AnneeService
	Adherents *services.AdherentService
	PDFDir    string
}

func NewDepenseHandler(db *gorm.DB, pdfDir string) *DepenseHandler {
	return &DepenseHandler{
		Depenses:  services.NewDepenseService(db),
		Annees:    services.NewAnneeService(db),
		Adherents: services.NewAdherentService(db),
		PDFDir:    pdfDir,
	}
}

// List repond a GET /depenses, filtre annee_id optionnel.
func (h *DepenseHandler) List(w http.ResponseWriter, r *http.Request) {
	var depenses []models.Depense
	var err error
	if v := r.URL.Query().Get("annee_id"); v != "" {
		n, _ := strconv.ParseUint(v, 10, 32)
		depenses, err = h.Depenses.PourAnnee(uint(n))
	} else {
		depenses, err = h.Depenses.List()
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "depenses_list_failed", nil)
		return
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		annees, _ := h.Annees.List()
		adherents, _ := h.Adherents.List(false)
		data := map[string]any{
			"Depenses":  depenses,
			"Annees":    annees,
			"Adherents": adherents,
			"Postes":    config.PostesDepenses,
			"Relations": config.Relations,
		}
		if err := view.Render(w, r, "depenses.html", data); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": depenses})
}

type depenseInput struct {
	AnneeID           uint               `json:"annee_id"`
	AdherentID        uint               `json:"adherent_id"`
	DefuntEstAdherent bool               `json:"defunt_est_adherent"`
	DefuntNom         string             `json:"defunt_nom"`
	DefuntRelation    string             `json:"defunt_relation"`
	DateDeces         string             `json:"date_deces"`
	PaysDestination   string             `json:"pays_destination"`
	Frais             map[string]float64 `json:"frais"`
	Notes             string             `json:"notes"`
}

func lireDepense(r *http.Request) (depenseInput, error) {
	var in depenseInput
	if isJSONBody(r) {
		return in, json.NewDecoder(r.Body).Decode(&in)
	}
	if err := r.ParseForm(); err != nil {
		return in, err
	}
	in = depenseInput{
		AnneeID:           formUint(r, "annee_id"),
		AdherentID:        formUint(r, "adherent_id"),
		DefuntEstAdherent: formBool(r, "defunt_est_adherent"),
		DefuntNom:         r.FormValue("defunt_nom"),
		DefuntRelation:    r.FormValue("defunt_relation"),
		DateDeces:         r.FormValue("date_deces"),
		PaysDestination:   r.FormValue("pays_destination"),
		Frais:             map[string]float64{},
		Notes:             r.FormValue("notes"),
	}
	for _, poste := range config.PostesDepenses {
		if v := r.FormValue(poste.Cle); v != "" {
			in.Frais[poste.Cle] = formFloat(r, poste.Cle)
		}
	}
	return in, nil
}

// Create repond a POST /depenses : enregistre le deces et ses frais.
func (h *DepenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := lireDepense(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	if in.DateDeces == "" {
		in.DateDeces = time.Now().Format(config.ISODateFormat)
	}
	if in.AnneeID == 0 {
		if active, err := h.Annees.GetActive(); err == nil {
			in.AnneeID = active.ID
		}
	}
	v := validation.Violations{}
	if in.AnneeID == 0 {
		v["annee_id"] = "required"
	}
	if in.AdherentID == 0 {
		v["adherent_id"] = "required"
	}
	validation.ISODate("date_deces", in.DateDeces, v)
	if !in.DefuntEstAdherent {
		validation.Required("defunt_relation", in.DefuntRelation, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	d := models.Depense{
		AnneeID:           in.AnneeID,
		AdherentID:        in.AdherentID,
		DefuntEstAdherent: in.DefuntEstAdherent,
		DefuntNom:         in.DefuntNom,
		DefuntRelation:    in.DefuntRelation,
		DateDeces:         in.DateDeces,
		PaysDestination:   in.PaysDestination,
		Notes:             in.Notes,
	}
	for cle, montant := range in.Frais {
		d.SetPoste(cle, montant)
	}
	if err := h.Depenses.Create(&d); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "adherent_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "depense_create_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/depenses", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

// Detail repond a GET /depenses/{id}.
func (h *DepenseHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	d, err := h.Depenses.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "depense_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "depense_load_failed", nil)
		return
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := map[string]any{"Depense": d, "Postes": config.PostesDepenses}
		if err := view.Render(w, r, "depense_detail.html", data); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

// Update repond a POST/PUT/PATCH /depenses/{id}/update. Le montant total
// est recalcule si un poste de frais change.
func (h *DepenseHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		for _, champ := range []string{"defunt_nom", "defunt_relation", "date_deces", "pays_destination", "notes"} {
			if v := r.FormValue(champ); v != "" {
				champs[champ] = v
			}
		}
		for _, poste := range config.PostesDepenses {
			if v := r.FormValue(poste.Cle); v != "" {
				champs[poste.Cle] = formFloat(r, poste.Cle)
			}
		}
	}
	applied, err := h.Depenses.Update(id, champs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "depense_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "depense_update_failed", nil)
		return
	}
	if !applied {
		httpx.JSONError(w, http.StatusBadRequest, "no_valid_fields", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/depenses", http.StatusSeeOther)
		return
	}
	d, err := h.Depenses.GetByID(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "depense_load_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

// Delete repond a POST/DELETE /depenses/{id}/delete.
func (h *DepenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Depenses.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "depense_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "depense_delete_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/depenses", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// Rapport repond a GET /depenses/{id}/rapport.pdf : rapport detaille des
// frais. Avec ?save=1 le fichier est aussi ecrit dans les exports.
func (h *DepenseHandler) Rapport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	d, err := h.Depenses.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "depense_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "depense_load_failed", nil)
		return
	}
	valeurs := d.Postes()
	data := pdf.DepenseData{
		Numero:          fmt.Sprintf("%d", d.ID),
		Defunt:          d.NomDefunt(),
		Relation:        d.DefuntRelation,
		DateDeces:       dateFR(d.DateDeces),
		PaysDestination: d.PaysDestination,
		Adherent:        d.Adherent.NomComplet(),
		Total:           fmt.Sprintf("%.2f %s", d.Montant, config.CurrencySymbol),
		Notes:           d.Notes,
		DateGeneration:  time.Now().Format(config.DateTimeFormat),
	}
	if d.DefuntEstAdherent {
		data.Relation = "Adherent"
	}
	for _, poste := range config.PostesDepenses {
		if v := valeurs[poste.Cle]; v > 0 {
			data.Lignes = append(data.Lignes, pdf.LigneFrais{
				Libelle: poste.Label,
				Montant: fmt.Sprintf("%.2f %s", v, config.CurrencySymbol),
			})
		}
	}
	octets, err := pdf.RapportDepense(data)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_failed", nil)
		return
	}
	nom := fmt.Sprintf("depense_%d.pdf", d.ID)
	if r.URL.Query().Get("save") == "1" {
		chemin, err := pdf.UniquePath(h.PDFDir, nom)
		if err == nil {
			err = os.WriteFile(chemin, octets, 0o644)
		}
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "pdf_save_failed", nil)
			return
		}
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", nom))
	if _, werr := w.Write(octets); werr != nil {
		_ = werr
	}
}
