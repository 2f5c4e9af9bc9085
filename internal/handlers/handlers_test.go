package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/models"
	"github.com/diewo77/go-tontine/internal/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Adherent{}, &models.Annee{}, &models.AppelDeFonds{},
		&models.Cotisation{}, &models.Contribution{}, &models.Depense{}, &models.Historique{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestAdherentCreateAndListJSON(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAdherentHandler(conn)

	req := httptest.NewRequest(http.MethodPost, "/adherents",
		strings.NewReader(`{"nom":"Diallo","prenom":"Mamadou","telephone":"0601020304","frais_entree":50}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var created models.Adherent
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.FraisEntreePaye {
		t.Fatalf("frais positifs doivent demarrer impayes")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/adherents", nil)
	req2.Header.Set("Accept", "application/json")
	w2 := httptest.NewRecorder()
	h.List(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w2.Code)
	}
	var payload struct {
		Items []models.Adherent `json:"items"`
		Total int               `json:"total"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if payload.Total != 1 || payload.Items[0].Nom != "Diallo" {
		t.Fatalf("unexpected list payload: %+v", payload)
	}
}

func TestAdherentCreateValidation(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAdherentHandler(conn)

	req := httptest.NewRequest(http.MethodPost, "/adherents", strings.NewReader(`{"nom":"","prenom":""}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestAppelCreateFanOutJSON(t *testing.T) {
	conn := setupTestDB(t)
	svc := services.NewAdherentService(conn)
	for _, nom := range []string{"Ba", "Sow"} {
		a := models.Adherent{Nom: nom, Prenom: "Test", Actif: true}
		if err := svc.Create(&a); err != nil {
			t.Fatalf("seed adherent: %v", err)
		}
	}

	h := NewAppelHandler(conn)
	req := httptest.NewRequest(http.MethodPost, "/appels",
		strings.NewReader(`{"annee":2025,"montant":100,"description":"Annuelle","admin_id":1,"date_lancement":"2025-01-15"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var appel models.AppelDeFonds
	if err := json.Unmarshal(w.Body.Bytes(), &appel); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/appels/1", nil)
	req2.SetPathValue("id", "1")
	req2.Header.Set("Accept", "application/json")
	w2 := httptest.NewRecorder()
	h.Detail(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w2.Code)
	}
	var detail struct {
		Stats services.AppelStats `json:"stats"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Stats.Total != 2 || detail.Stats.NbNonPaye != 2 {
		t.Fatalf("unexpected stats: %+v", detail.Stats)
	}
}

func TestContributionPaiementFlow(t *testing.T) {
	conn := setupTestDB(t)
	a := models.Adherent{Nom: "Flow", Prenom: "Test", Actif: true}
	if err := services.NewAdherentService(conn).Create(&a); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := services.NewAppelService(conn).Create(2025, 100, "", 1, "2025-01-01"); err != nil {
		t.Fatalf("appel: %v", err)
	}
	var cot models.Cotisation
	if err := conn.First(&cot).Error; err != nil {
		t.Fatalf("cotisation: %v", err)
	}

	ch := NewContributionHandler(conn, t.TempDir())
	body := strings.NewReader(`{"cotisation_id":1,"montant":40,"date_paiement":"2025-02-01","mode_paiement":"Especes","admin_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/contributions", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	ch.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}

	conn.First(&cot, cot.ID)
	if cot.Statut != models.StatutPartiel || cot.MontantPaye != 40 {
		t.Fatalf("cotisation non reconciliee: %+v", cot)
	}

	// Le select AJAX doit encore proposer la cotisation avec le reste.
	ah := NewAdherentHandler(conn)
	req2 := httptest.NewRequest(http.MethodGet, "/api/adherents/1/cotisations-impayees", nil)
	req2.SetPathValue("id", "1")
	w2 := httptest.NewRecorder()
	ah.CotisationsImpayees(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w2.Code)
	}
	var payload struct {
		Items []struct {
			ID    uint    `json:"id"`
			Reste float64 `json:"reste"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].Reste != 60 {
		t.Fatalf("unexpected impayees: %+v", payload)
	}
}

func TestContributionFraisEntree(t *testing.T) {
	conn := setupTestDB(t)
	a := models.Adherent{Nom: "Frais", Prenom: "Test", Actif: true, FraisEntree: 50}
	if err := services.NewAdherentService(conn).Create(&a); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ch := NewContributionHandler(conn, t.TempDir())
	body := strings.NewReader(`{"motif":"frais_entree","adherent_id":1,"montant":50,"date_paiement":"2025-01-10","admin_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/contributions", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	ch.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var maj models.Adherent
	conn.First(&maj, a.ID)
	if !maj.FraisEntreePaye {
		t.Fatalf("frais_entree_paye doit passer a vrai")
	}
}

func TestDepenseCreateJSON(t *testing.T) {
	conn := setupTestDB(t)
	a := models.Adherent{Nom: "Deces", Prenom: "Test", Actif: true}
	if err := services.NewAdherentService(conn).Create(&a); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := services.NewAnneeService(conn).Create(2025); err != nil {
		t.Fatalf("annee: %v", err)
	}

	h := NewDepenseHandler(conn, t.TempDir())
	body := strings.NewReader(`{"annee_id":1,"adherent_id":1,"defunt_nom":"Proche","defunt_relation":"Pere","date_deces":"2025-04-10","frais":{"transport_services":100,"billet_avion":50}}`)
	req := httptest.NewRequest(http.MethodPost, "/depenses", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var d models.Depense
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Montant != 150 {
		t.Fatalf("montant = %v, want 150", d.Montant)
	}
}

func TestDashboardJSON(t *testing.T) {
	conn := setupTestDB(t)
	h := NewDashboardHandler(conn)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Show(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var payload struct {
		Stats services.DashboardStats `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Stats.NbAdherentsActifs != 0 {
		t.Fatalf("base vide attendue, got %+v", payload.Stats)
	}
}

func TestDetailNotFound(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAdherentHandler(conn)
	req := httptest.NewRequest(http.MethodGet, "/adherents/999", nil)
	req.SetPathValue("id", "999")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Detail(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}
