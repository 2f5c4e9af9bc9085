package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

// pathID lit l'identifiant numerique du segment {id} de la route.
func pathID(r *http.Request) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// wantsHTML : HTML par defaut, JSON seulement sur demande explicite.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || accept == ""
}

// formFloat lit un champ de formulaire decimal, zero si absent ou invalide.
func formFloat(r *http.Request, name string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue(name)), 64)
	return f
}

// formUint lit un champ de formulaire entier, zero si absent ou invalide.
func formUint(r *http.Request, name string) uint {
	n, _ := strconv.ParseUint(strings.TrimSpace(r.FormValue(name)), 10, 32)
	return uint(n)
}

// formBool interprete les representations usuelles d'un booleen de formulaire.
func formBool(r *http.Request, name string) bool {
	v := strings.ToLower(strings.TrimSpace(r.FormValue(name)))
	return v == "1" || v == "true" || v == "on" || v == "oui"
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
