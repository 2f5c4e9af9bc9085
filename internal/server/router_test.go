package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/db"
	"github.com/diewo77/go-tontine/internal/models"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Config{Port: "0", PDFDir: t.TempDir(), BackupDir: t.TempDir()}
	return New(conn, cfg)
}

func TestHealthEndpoints(t *testing.T) {
	srv := setupServer(t)
	for _, path := range []string{"/health", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"ok"`) {
			t.Fatalf("%s: unexpected body %s", path, w.Body.String())
		}
	}
}

func TestEndToEndPaiement(t *testing.T) {
	srv := setupServer(t)

	post := func(path, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		return w
	}
	get := func(path string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		return w
	}

	// Annee + deux adherents
	if w := post("/annees", `{"annee":2025}`); w.Code != http.StatusCreated {
		t.Fatalf("create annee: %d %s", w.Code, w.Body.String())
	}
	if w := post("/annees/1/activate", ``); w.Code != http.StatusOK {
		t.Fatalf("activate annee: %d", w.Code)
	}
	for _, body := range []string{
		`{"nom":"Diallo","prenom":"Mamadou"}`,
		`{"nom":"Ndiaye","prenom":"Awa"}`,
	} {
		if w := post("/adherents", body); w.Code != http.StatusCreated {
			t.Fatalf("create adherent: %d %s", w.Code, w.Body.String())
		}
	}

	// Appel de fonds sur l'annee active : fan-out sur les deux adherents
	if w := post("/appels", `{"montant":100,"admin_id":1,"date_lancement":"2025-01-15"}`); w.Code != http.StatusCreated {
		t.Fatalf("create appel: %d %s", w.Code, w.Body.String())
	}
	w := get("/appels/1")
	if w.Code != http.StatusOK {
		t.Fatalf("appel detail: %d", w.Code)
	}
	var detail struct {
		Cotisations []models.Cotisation `json:"cotisations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.Cotisations) != 2 {
		t.Fatalf("expected 2 cotisations got %d", len(detail.Cotisations))
	}

	// Paiement complet de la premiere cotisation
	if w := post("/contributions", `{"cotisation_id":1,"montant":100,"date_paiement":"2025-02-01","mode_paiement":"Virement","admin_id":1}`); w.Code != http.StatusCreated {
		t.Fatalf("paiement: %d %s", w.Code, w.Body.String())
	}

	// Le recu PDF doit etre servi
	wPDF := get("/contributions/1/recu.pdf")
	if wPDF.Code != http.StatusOK {
		t.Fatalf("recu pdf: %d", wPDF.Code)
	}
	if ct := wPDF.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %s", ct)
	}
	if !strings.HasPrefix(wPDF.Body.String(), "%PDF") {
		t.Fatalf("pdf body invalide")
	}

	// Balance de l'annee : 100 collectes, rien depense
	wAnnee := get("/annees/1")
	if wAnnee.Code != http.StatusOK {
		t.Fatalf("annee detail: %d", wAnnee.Code)
	}
	var annee struct {
		Balance float64 `json:"balance"`
	}
	if err := json.Unmarshal(wAnnee.Body.Bytes(), &annee); err != nil {
		t.Fatalf("decode annee: %v", err)
	}
	if annee.Balance != 100 {
		t.Fatalf("balance = %v, want 100", annee.Balance)
	}
}

func TestBackupEndpoint(t *testing.T) {
	srv := setupServer(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/backup", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	// Le DSN memoire n'est pas postgres : VACUUM INTO doit fonctionner.
	if w.Code != http.StatusOK {
		t.Fatalf("backup: %d %s", w.Code, w.Body.String())
	}
}
