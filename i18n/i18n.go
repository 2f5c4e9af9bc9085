package i18n

import "strings"

// messages : catalogue fr/en. Le francais est la langue de reference.
var messages = map[string]map[string]string{
	"fr": {
		"required":            "Requis",
		"app_title":           "Gestion Tontine",
		"dashboard":           "Tableau de bord",
		"adherents":           "Adherents",
		"annees":              "Annees",
		"appels":              "Appels de fonds",
		"contributions":       "Paiements",
		"depenses":            "Depenses",
		"actif":               "Actif",
		"inactif":             "Inactif",
		"statut_paye":         "Paye",
		"statut_partiel":      "Partiel",
		"statut_non_paye":     "Non paye",
		"balance":             "Balance",
		"total_collecte":      "Total collecte",
		"total_depenses":      "Total depenses",
		"taux_recouvrement":   "Taux de recouvrement",
		"frais_entree":        "Frais d'entree",
		"enregistrer":         "Enregistrer",
		"supprimer":           "Supprimer",
		"annuler":             "Annuler",
		"alertes":             "Alertes",
		"aucun_resultat":      "Aucun resultat",
		"defunt":              "Defunt",
		"reste_a_payer":       "Reste a payer",
	},
	"en": {
		"required":            "Required",
		"app_title":           "Tontine Manager",
		"dashboard":           "Dashboard",
		"adherents":           "Members",
		"annees":              "Years",
		"appels":              "Fund calls",
		"contributions":       "Payments",
		"depenses":            "Expenses",
		"actif":               "Active",
		"inactif":             "Inactive",
		"statut_paye":         "Paid",
		"statut_partiel":      "Partial",
		"statut_non_paye":     "Unpaid",
		"balance":             "Balance",
		"total_collecte":      "Total collected",
		"total_depenses":      "Total expenses",
		"taux_recouvrement":   "Collection rate",
		"frais_entree":        "Entry fee",
		"enregistrer":         "Save",
		"supprimer":           "Delete",
		"annuler":             "Cancel",
		"alertes":             "Alerts",
		"aucun_resultat":      "No results",
		"defunt":              "Deceased",
		"reste_a_payer":       "Remaining",
	},
}

// T translates a message code. Unknown languages fall back to French,
// unknown codes fall back to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if lang != "fr" {
		if s, ok := messages["fr"][code]; ok {
			return s
		}
	}
	return code
}

// DetectLanguage picks fr or en from an Accept-Language header, fr default.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if strings.HasPrefix(tag, "en") {
			return "en"
		}
		if strings.HasPrefix(tag, "fr") {
			return "fr"
		}
	}
	return "fr"
}
