package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string
	PDFDir      string
	BackupDir   string
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by user) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "file:data/tontine.db")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.PDFDir = getEnv("PDF_DIR", "exports")
	cfg.BackupDir = getEnv("BACKUP_DIR", "backups")
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}

// Formats d'affichage
const (
	CurrencySymbol = "€"
	DateFormat     = "02/01/2006"
	DateTimeFormat = "02/01/2006 15:04"
	ISODateFormat  = "2006-01-02"
)

// ModesPaiement : enumeration fermee consommee par les formulaires.
var ModesPaiement = []string{"Especes", "Cheque", "Virement", "Mobile Money", "Autre"}

// Admins : identites enregistrables comme auteur d'une operation.
var Admins = map[uint]string{
	1: "Admin 1",
	2: "Admin 2",
	3: "Admin 3",
	4: "Admin 4",
	5: "Admin 5",
}

// Poste : une categorie de frais de deces.
type Poste struct {
	Cle   string
	Label string
}

// PostesDepenses : ensemble ordonne des postes. Le calcul du montant total
// d'une depense parcourt cette liste, jamais une enumeration en dur.
var PostesDepenses = []Poste{
	{Cle: "transport_services", Label: "Transport / Services"},
	{Cle: "billet_avion", Label: "Billet d'avion"},
	{Cle: "imam", Label: "Imam"},
	{Cle: "mairie", Label: "Mairie"},
	{Cle: "autre1", Label: "Autre 1"},
	{Cle: "autre2", Label: "Autre 2"},
	{Cle: "autre3", Label: "Autre 3"},
}

// Relations defunt / adherent
var Relations = []string{
	"Pere", "Mere", "Epoux/Epouse", "Fils", "Fille",
	"Frere", "Soeur", "Grand-parent", "Oncle", "Tante",
	"Cousin/Cousine", "Autre",
}
