package server

import (
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/httpx"
	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/db"
	"github.com/diewo77/go-tontine/internal/handlers"
	"github.com/diewo77/go-tontine/internal/middleware"
	"github.com/diewo77/go-tontine/view"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(conn *gorm.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	// Les templates lisent lang/theme via les resolveurs du package view.
	view.SetLangResolver(middleware.LangFrom)
	view.SetThemeResolver(middleware.ThemeFrom)

	// --- Health endpoints ---
	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Exec("SELECT 1").Error; err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, werr := w.Write([]byte(`{"status":"degraded"}`)); werr != nil {
				_ = werr
			}
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	//revive:enable:unused-parameter

	// Tableau de bord
	dh := handlers.NewDashboardHandler(conn)
	mux.HandleFunc("GET /{$}", dh.Show)
	mux.HandleFunc("GET /dashboard", dh.Show)

	// Adherents
	ah := handlers.NewAdherentHandler(conn)
	mux.HandleFunc("GET /adherents", ah.List)
	mux.HandleFunc("POST /adherents", ah.Create)
	mux.HandleFunc("GET /adherents/{id}", ah.Detail)
	mux.HandleFunc("POST /adherents/{id}/update", ah.Update)
	mux.HandleFunc("POST /adherents/{id}/toggle", ah.Toggle)
	mux.HandleFunc("POST /adherents/{id}/delete", ah.Delete)
	mux.HandleFunc("GET /api/adherents/{id}/cotisations-impayees", ah.CotisationsImpayees)

	// Annees
	yh := handlers.NewAnneeHandler(conn)
	mux.HandleFunc("GET /annees", yh.List)
	mux.HandleFunc("POST /annees", yh.Create)
	mux.HandleFunc("GET /annees/{id}", yh.Detail)
	mux.HandleFunc("POST /annees/{id}/activate", yh.Activate)

	// Appels de fonds
	fh := handlers.NewAppelHandler(conn)
	mux.HandleFunc("GET /appels", fh.List)
	mux.HandleFunc("POST /appels", fh.Create)
	mux.HandleFunc("GET /appels/{id}", fh.Detail)
	mux.HandleFunc("POST /appels/{id}/cloturer", fh.Cloturer)

	// Paiements
	ch := handlers.NewContributionHandler(conn, cfg.PDFDir)
	mux.HandleFunc("GET /contributions", ch.List)
	mux.HandleFunc("POST /contributions", ch.Create)
	mux.HandleFunc("GET /contributions/{id}", ch.Detail)
	mux.HandleFunc("POST /contributions/{id}/update", ch.Update)
	mux.HandleFunc("POST /contributions/{id}/delete", ch.Delete)
	mux.HandleFunc("GET /contributions/{id}/recu.pdf", ch.Recu)

	// Depenses
	xh := handlers.NewDepenseHandler(conn, cfg.PDFDir)
	mux.HandleFunc("GET /depenses", xh.List)
	mux.HandleFunc("POST /depenses", xh.Create)
	mux.HandleFunc("GET /depenses/{id}", xh.Detail)
	mux.HandleFunc("POST /depenses/{id}/update", xh.Update)
	mux.HandleFunc("POST /depenses/{id}/delete", xh.Delete)
	mux.HandleFunc("GET /depenses/{id}/rapport.pdf", xh.Rapport)

	// Rapports
	rh := handlers.NewRapportHandler(conn)
	mux.HandleFunc("GET /rapports/annees/{id}", rh.Annuel)
	mux.HandleFunc("GET /rapports/adherents/{id}", rh.Adherent)
	mux.HandleFunc("GET /rapports/contributions/{id}", rh.Contributions)

	// Sauvegarde de la base (sqlite uniquement)
	mux.HandleFunc("POST /admin/backup", func(w http.ResponseWriter, r *http.Request) {
		chemin, err := db.Backup(conn, cfg.DatabaseDSN, cfg.BackupDir)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "backup_failed", err.Error())
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"backup": chemin})
	})

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	return middleware.Prefs(withRecover(withLogging(mux)))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v", rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
