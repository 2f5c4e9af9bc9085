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

type ContributionHandler struct {
	Contributions *services.ContributionService
	Cotisations   *services.CotisationService
	Adherents     *services.AdherentService
	PDFDir        string
}

func NewContributionHandler(db *gorm.DB, pdfDir string) *ContributionHandler {
	return &ContributionHandler{
		Contributions: services.NewContributionService(db),
		Cotisations:   services.NewCotisationService(db),
		Adherents:     services.NewAdherentService(db),
		PDFDir:        pdfDir,
	}
}

// List repond a GET /contributions : derniers paiements.
func (h *ContributionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	contribs, err := h.Contributions.Dernieres(limit)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "contributions_list_failed", nil)
		return
	}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		adherents, _ := h.Adherents.List(true)
		data := map[string]any{
			"Contributions": contribs,
			"Adherents":     adherents,
			"ModesPaiement": config.ModesPaiement,
		}
		if err := view.Render(w, r, "contributions.html", data); err != nil {
			if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": contribs})
}

type paiementBody struct {
	CotisationID      uint    `json:"cotisation_id"`
	AdherentID        uint    `json:"adherent_id"`
	Motif             string  `json:"motif"`
	Montant           float64 `json:"montant"`
	DatePaiement      string  `json:"date_paiement"`
	ModePaiement      string  `json:"mode_paiement"`
	ReferencePaiement string  `json:"reference_paiement"`
	AdminID           uint    `json:"admin_id"`
	Notes             string  `json:"notes"`
}

func lirePaiement(r *http.Request) (paiementBody, error) {
	var in paiementBody
	if isJSONBody(r) {
		return in, json.NewDecoder(r.Body).Decode(&in)
	}
	if err := r.ParseForm(); err != nil {
		return in, err
	}
	in = paiementBody{
		CotisationID:      formUint(r, "cotisation_id"),
		AdherentID:        formUint(r, "adherent_id"),
		Motif:             r.FormValue("motif"),
		Montant:           formFloat(r, "montant"),
		DatePaiement:      r.FormValue("date_paiement"),
		ModePaiement:      r.FormValue("mode_paiement"),
		ReferencePaiement: r.FormValue("reference_paiement"),
		AdminID:           formUint(r, "admin_id"),
		Notes:             r.FormValue("notes"),
	}
	return in, nil
}

// Create repond a POST /contributions. Deux motifs : paiement d'une
// cotisation (cotisation_id) ou frais d'entree (motif=frais_entree +
// adherent_id).
func (h *ContributionHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := lirePaiement(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	if in.DatePaiement == "" {
		in.DatePaiement = time.Now().Format(config.ISODateFormat)
	}
	v := validation.Violations{}
	validation.PositiveFloat("montant", in.Montant, v)
	validation.ISODate("date_paiement", in.DatePaiement, v)
	if in.Motif != models.TypeFraisEntree && in.CotisationID == 0 {
		v["cotisation_id"] = "required"
	}
	if in.Motif == models.TypeFraisEntree && in.AdherentID == 0 {
		v["adherent_id"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	input := services.PaiementInput{
		Montant:           in.Montant,
		DatePaiement:      in.DatePaiement,
		ModePaiement:      in.ModePaiement,
		ReferencePaiement: in.ReferencePaiement,
		AdminID:           in.AdminID,
		Notes:             in.Notes,
	}
	var contrib *models.Contribution
	if in.Motif == models.TypeFraisEntree {
		contrib, err = h.Contributions.PayerFraisEntree(in.AdherentID, input)
	} else {
		contrib, err = h.Cotisations.EnregistrerPaiement(in.CotisationID, input)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "target_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "paiement_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/contributions", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, contrib)
}

// Detail repond a GET /contributions/{id}. Les navigateurs sont renvoyes
// vers la fiche de l'adherent, ou le paiement apparait dans l'historique.
func (h *ContributionHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	contrib, err := h.Contributions.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "contribution_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "contribution_load_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, fmt.Sprintf("/adherents/%d", contrib.AdherentID), http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, contrib)
}

// Delete repond a POST/DELETE /contributions/{id}/delete. Le montant paye
// de la cotisation liee est reajuste avant suppression.
func (h *ContributionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Contributions.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "contribution_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "contribution_delete_failed", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/contributions", http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// Update repond a POST/PUT/PATCH /contributions/{id}/update.
func (h *ContributionHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		for _, champ := range []string{"date_paiement", "mode_paiement", "reference_paiement", "notes"} {
			if v := r.FormValue(champ); v != "" {
				champs[champ] = v
			}
		}
	}
	applied, err := h.Contributions.Update(id, champs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "contribution_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "contribution_update_failed", nil)
		return
	}
	if !applied {
		httpx.JSONError(w, http.StatusBadRequest, "no_valid_fields", nil)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/contributions", http.StatusSeeOther)
		return
	}
	contrib, err := h.Contributions.GetByID(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "contribution_load_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, contrib)
}

// Recu repond a GET /contributions/{id}/recu.pdf : genere et sert le recu.
// Avec ?save=1 le fichier est aussi ecrit dans le repertoire des exports.
func (h *ContributionHandler) Recu(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	contrib, err := h.Contributions.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "contribution_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "contribution_load_failed", nil)
		return
	}
	data := pdf.RecuData{
		Numero:       fmt.Sprintf("%d", contrib.ID),
		Adherent:     contrib.Adherent.NomComplet(),
		Montant:      fmt.Sprintf("%.2f %s", contrib.Montant, config.CurrencySymbol),
		Date:         dateFR(contrib.DatePaiement),
		ModePaiement: contrib.ModePaiement,
		Reference:    contrib.ReferencePaiement,
		TypePaiement: contrib.TypePaiement,
		Admin:        config.Admins[contrib.AdminID],
	}
	if contrib.CotisationID != nil {
		if cot, err := h.Cotisations.GetByID(*contrib.CotisationID); err == nil {
			data.Appel = fmt.Sprintf("Appel %d - %s", cot.Appel.Annee, cot.Appel.Description)
		}
	}
	octets, err := pdf.Recu(data)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_failed", nil)
		return
	}
	nom := fmt.Sprintf("recu_%d.pdf", contrib.ID)
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

// dateFR reformate une date ISO pour l'affichage, telle quelle si invalide.
func dateFR(iso string) string {
	t, err := time.Parse(config.ISODateFormat, iso)
	if err != nil {
		return iso
	}
	return t.Format(config.DateFormat)
}
