package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/models"
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

func createAdherent(t *testing.T, conn *gorm.DB, nom string, frais float64) *models.Adherent {
	t.Helper()
	a := models.Adherent{Nom: nom, Prenom: "Test", Actif: true, FraisEntree: frais}
	if err := NewAdherentService(conn).Create(&a); err != nil {
		t.Fatalf("create adherent %s: %v", nom, err)
	}
	return &a
}

func TestStatutPour(t *testing.T) {
	cases := []struct {
		paye, du float64
		want     string
	}{
		{0, 100, models.StatutNonPaye},
		{50, 100, models.StatutPartiel},
		{100, 100, models.StatutPaye},
		{150, 100, models.StatutPaye},
		{0, 0, models.StatutPaye},
	}
	for _, c := range cases {
		if got := models.StatutPour(c.paye, c.du); got != c.want {
			t.Fatalf("StatutPour(%v, %v) = %s, want %s", c.paye, c.du, got, c.want)
		}
	}
}

func TestAdherentFraisEntree(t *testing.T) {
	conn := setupTestDB(t)

	gratuit := createAdherent(t, conn, "Gratuit", 0)
	if !gratuit.FraisEntreePaye {
		t.Fatalf("frais a zero doivent etre consideres payes")
	}

	payant := createAdherent(t, conn, "Payant", 50)
	if payant.FraisEntreePaye {
		t.Fatalf("frais positifs doivent demarrer impayes")
	}

	// Inscription + frais impayes = deux entrees d'historique
	var n int64
	conn.Model(&models.Historique{}).Where("adherent_id = ?", payant.ID).Count(&n)
	if n != 2 {
		t.Fatalf("expected 2 history entries got %d", n)
	}
}

func TestAppelFanOut(t *testing.T) {
	conn := setupTestDB(t)
	a1 := createAdherent(t, conn, "Alpha", 0)
	a2 := createAdherent(t, conn, "Beta", 0)
	inactif := createAdherent(t, conn, "Gamma", 0)
	if _, err := NewAdherentService(conn).Toggle(inactif.ID, 1); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	appel, err := NewAppelService(conn).Create(2025, 100, "Cotisation annuelle", 1, "2025-01-15")
	if err != nil {
		t.Fatalf("create appel: %v", err)
	}

	var cots []models.Cotisation
	if err := conn.Where("appel_id = ?", appel.ID).Find(&cots).Error; err != nil {
		t.Fatalf("load cotisations: %v", err)
	}
	if len(cots) != 2 {
		t.Fatalf("expected 2 cotisations (actifs only) got %d", len(cots))
	}
	vus := map[uint]bool{}
	for _, c := range cots {
		vus[c.AdherentID] = true
		if c.MontantDu != 100 || c.Statut != models.StatutNonPaye {
			t.Fatalf("cotisation mal initialisee: %+v", c)
		}
	}
	if !vus[a1.ID] || !vus[a2.ID] || vus[inactif.ID] {
		t.Fatalf("fan-out incorrect: %v", vus)
	}
}

func TestPaiementLifecycle(t *testing.T) {
	conn := setupTestDB(t)
	a := createAdherent(t, conn, "Cycle", 0)

	appel, err := NewAppelService(conn).Create(2025, 100, "", 1, "2025-01-01")
	if err != nil {
		t.Fatalf("create appel: %v", err)
	}
	var cot models.Cotisation
	if err := conn.Where("appel_id = ? AND adherent_id = ?", appel.ID, a.ID).First(&cot).Error; err != nil {
		t.Fatalf("load cotisation: %v", err)
	}

	cotSvc := NewCotisationService(conn)

	// Paiement partiel
	if _, err := cotSvc.EnregistrerPaiement(cot.ID, PaiementInput{Montant: 40, DatePaiement: "2025-02-01", ModePaiement: "Especes", AdminID: 1}); err != nil {
		t.Fatalf("paiement partiel: %v", err)
	}
	conn.First(&cot, cot.ID)
	if cot.MontantPaye != 40 || cot.Statut != models.StatutPartiel {
		t.Fatalf("apres 40: paye=%v statut=%s", cot.MontantPaye, cot.Statut)
	}
	if reste := cot.ResteAPayer(); reste != 60 {
		t.Fatalf("reste = %v, want 60", reste)
	}

	// Solde
	contrib, err := cotSvc.EnregistrerPaiement(cot.ID, PaiementInput{Montant: 60, DatePaiement: "2025-03-01", ModePaiement: "Virement", AdminID: 1})
	if err != nil {
		t.Fatalf("solde: %v", err)
	}
	conn.First(&cot, cot.ID)
	if cot.MontantPaye != 100 || cot.Statut != models.StatutPaye {
		t.Fatalf("apres solde: paye=%v statut=%s", cot.MontantPaye, cot.Statut)
	}

	// Suppression du second paiement : retour a partiel
	if err := NewContributionService(conn).Delete(contrib.ID); err != nil {
		t.Fatalf("delete contribution: %v", err)
	}
	conn.First(&cot, cot.ID)
	if cot.MontantPaye != 40 || cot.Statut != models.StatutPartiel {
		t.Fatalf("apres rollback: paye=%v statut=%s", cot.MontantPaye, cot.Statut)
	}
}

func TestContributionDeleteFloorZero(t *testing.T) {
	conn := setupTestDB(t)
	createAdherent(t, conn, "Floor", 0)
	appel, _ := NewAppelService(conn).Create(2025, 100, "", 1, "2025-01-01")
	var cot models.Cotisation
	conn.Where("appel_id = ?", appel.ID).First(&cot)

	contrib, err := NewCotisationService(conn).EnregistrerPaiement(cot.ID, PaiementInput{Montant: 30, DatePaiement: "2025-02-01", AdminID: 1})
	if err != nil {
		t.Fatalf("paiement: %v", err)
	}
	// Desynchronisation volontaire : montant_paye plus petit que le paiement.
	conn.Model(&cot).Update("montant_paye", 10)
	if err := NewContributionService(conn).Delete(contrib.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	conn.First(&cot, cot.ID)
	if cot.MontantPaye != 0 {
		t.Fatalf("montant_paye doit etre plancher a zero, got %v", cot.MontantPaye)
	}
}

func TestPayerFraisEntree(t *testing.T) {
	conn := setupTestDB(t)
	a := createAdherent(t, conn, "Frais", 75)

	contrib, err := NewContributionService(conn).PayerFraisEntree(a.ID, PaiementInput{Montant: 75, DatePaiement: "2025-01-10", ModePaiement: "Especes", AdminID: 2})
	if err != nil {
		t.Fatalf("payer frais: %v", err)
	}
	if contrib.TypePaiement != models.TypeFraisEntree || contrib.CotisationID != nil {
		t.Fatalf("contribution frais mal formee: %+v", contrib)
	}
	var maj models.Adherent
	conn.First(&maj, a.ID)
	if !maj.FraisEntreePaye {
		t.Fatalf("frais_entree_paye doit passer a vrai")
	}
}

func TestAnneeSetActiveUnique(t *testing.T) {
	conn := setupTestDB(t)
	svc := NewAnneeService(conn)
	a2024, err := svc.Create(2024)
	if err != nil {
		t.Fatalf("create 2024: %v", err)
	}
	a2025, err := svc.Create(2025)
	if err != nil {
		t.Fatalf("create 2025: %v", err)
	}
	if _, err := svc.Create(2025); err != ErrAnneeExistante {
		t.Fatalf("expected ErrAnneeExistante got %v", err)
	}

	if err := svc.SetActive(a2024.ID); err != nil {
		t.Fatalf("activate 2024: %v", err)
	}
	if err := svc.SetActive(a2025.ID); err != nil {
		t.Fatalf("activate 2025: %v", err)
	}
	var n int64
	conn.Model(&models.Annee{}).Where("active = ?", true).Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly 1 active annee got %d", n)
	}
	active, err := svc.GetActive()
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.ID != a2025.ID {
		t.Fatalf("active = %d, want %d", active.ID, a2025.ID)
	}
}

func TestDepenseSommePostes(t *testing.T) {
	conn := setupTestDB(t)
	a := createAdherent(t, conn, "Depense", 0)
	annee, _ := NewAnneeService(conn).Create(2025)

	svc := NewDepenseService(conn)
	d := models.Depense{
		AnneeID: annee.ID, AdherentID: a.ID,
		DefuntNom: "Proche", DefuntRelation: "Pere", DateDeces: "2025-04-10",
		TransportServices: 100, BilletAvion: 50, Imam: -20,
	}
	if err := svc.Create(&d); err != nil {
		t.Fatalf("create depense: %v", err)
	}
	if d.Montant != 150 {
		t.Fatalf("montant = %v, want 150 (negatifs ramenes a zero)", d.Montant)
	}

	// Update d'un poste : recalcul
	if _, err := svc.Update(d.ID, map[string]any{"mairie": 25.0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	conn.First(&d, d.ID)
	if d.Montant != 175 {
		t.Fatalf("apres update montant = %v, want 175", d.Montant)
	}

	// Update sans poste : pas de recalcul force
	if _, err := svc.Update(d.ID, map[string]any{"notes": "rien"}); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	conn.First(&d, d.ID)
	if d.Montant != 175 {
		t.Fatalf("update hors poste ne doit pas toucher le montant, got %v", d.Montant)
	}
}

func TestDepenseDecesAdherent(t *testing.T) {
	conn := setupTestDB(t)
	a := createAdherent(t, conn, "Defunt", 0)
	annee, _ := NewAnneeService(conn).Create(2025)

	d := models.Depense{
		AnneeID: annee.ID, AdherentID: a.ID,
		DefuntEstAdherent: true, DateDeces: "2025-06-01",
		TransportServices: 200,
	}
	if err := NewDepenseService(conn).Create(&d); err != nil {
		t.Fatalf("create depense: %v", err)
	}
	var maj models.Adherent
	conn.First(&maj, a.ID)
	if maj.Actif {
		t.Fatalf("l'adherent decede doit etre desactive")
	}
	if maj.DateSortie != "2025-06-01" {
		t.Fatalf("date_sortie = %q, want date du deces", maj.DateSortie)
	}
	var evt models.Historique
	if err := conn.Where("adherent_id = ? AND type_evenement = ?", a.ID, models.EvtDeces).First(&evt).Error; err != nil {
		t.Fatalf("evenement deces absent: %v", err)
	}
}

func TestBalanceAnnee(t *testing.T) {
	conn := setupTestDB(t)
	a := createAdherent(t, conn, "Balance", 0)
	anneeSvc := NewAnneeService(conn)
	annee, _ := anneeSvc.Create(2025)

	appel, _ := NewAppelService(conn).Create(2025, 100, "", 1, "2025-01-01")
	var cot models.Cotisation
	conn.Where("appel_id = ?", appel.ID).First(&cot)
	if _, err := NewCotisationService(conn).EnregistrerPaiement(cot.ID, PaiementInput{Montant: 100, DatePaiement: "2025-02-01", AdminID: 1}); err != nil {
		t.Fatalf("paiement: %v", err)
	}
	d := models.Depense{AnneeID: annee.ID, AdherentID: a.ID, DefuntNom: "X", DefuntRelation: "Frere", DateDeces: "2025-03-01", Imam: 30}
	if err := NewDepenseService(conn).Create(&d); err != nil {
		t.Fatalf("depense: %v", err)
	}

	balance, err := anneeSvc.Balance(annee.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 70 {
		t.Fatalf("balance = %v, want 70", balance)
	}
}

func TestAlertes(t *testing.T) {
	conn := setupTestDB(t)
	createAdherent(t, conn, "Impaye", 40) // frais d'entree impayes

	appel, _ := NewAppelService(conn).Create(2025, 100, "Annuelle", 1, "2025-01-01")
	_ = appel // cotisation non payee => taux 0% + impayee totale

	alertes, err := NewStatistiqueService(conn).Alertes()
	if err != nil {
		t.Fatalf("alertes: %v", err)
	}
	types := map[string]string{}
	for _, al := range alertes {
		types[al.Type] = al.Niveau
	}
	if types["taux_faible"] != NiveauWarning {
		t.Fatalf("alerte taux_faible manquante ou mauvais niveau: %v", types)
	}
	if types["cotisations_impayees"] != NiveauInfo {
		t.Fatalf("alerte cotisations_impayees manquante: %v", types)
	}
	if types["frais_entree_impayes"] != NiveauInfo {
		t.Fatalf("alerte frais_entree_impayes manquante: %v", types)
	}
	if _, ok := types["balance_negative"]; ok {
		t.Fatalf("balance nulle ne doit pas declencher d'alerte critique")
	}
}

func TestAlerteBalanceNegative(t *testing.T) {
	conn := setupTestDB(t)
	a := createAdherent(t, conn, "Negatif", 0)
	annee, _ := NewAnneeService(conn).Create(2025)
	d := models.Depense{AnneeID: annee.ID, AdherentID: a.ID, DefuntNom: "Y", DefuntRelation: "Mere", DateDeces: "2025-05-01", BilletAvion: 500}
	if err := NewDepenseService(conn).Create(&d); err != nil {
		t.Fatalf("depense: %v", err)
	}
	alertes, err := NewStatistiqueService(conn).Alertes()
	if err != nil {
		t.Fatalf("alertes: %v", err)
	}
	found := false
	for _, al := range alertes {
		if al.Type == "balance_negative" && al.Niveau == NiveauCritique {
			found = true
		}
	}
	if !found {
		t.Fatalf("alerte balance_negative attendue: %+v", alertes)
	}
}

func TestDepenseParMois(t *testing.T) {
	conn := setupTestDB(t)
	a := createAdherent(t, conn, "Mois", 0)
	annee, _ := NewAnneeService(conn).Create(2025)
	svc := NewDepenseService(conn)
	for _, dd := range []struct {
		date    string
		montant float64
	}{
		{"2025-01-10", 100},
		{"2025-01-20", 50},
		{"2025-07-05", 30},
	} {
		d := models.Depense{AnneeID: annee.ID, AdherentID: a.ID, DefuntNom: "Z", DefuntRelation: "Oncle", DateDeces: dd.date, TransportServices: dd.montant}
		if err := svc.Create(&d); err != nil {
			t.Fatalf("depense %s: %v", dd.date, err)
		}
	}
	parMois, err := svc.ParMois(annee.ID)
	if err != nil {
		t.Fatalf("par mois: %v", err)
	}
	if len(parMois) != 12 {
		t.Fatalf("tous les mois doivent etre presents, got %d", len(parMois))
	}
	if parMois["Janvier"].Nombre != 2 || parMois["Janvier"].Total != 150 {
		t.Fatalf("janvier = %+v", parMois["Janvier"])
	}
	if parMois["Juillet"].Nombre != 1 || parMois["Juillet"].Total != 30 {
		t.Fatalf("juillet = %+v", parMois["Juillet"])
	}
	if parMois["Decembre"].Nombre != 0 {
		t.Fatalf("decembre doit etre a zero")
	}
}

func TestRapportAnnuel(t *testing.T) {
	conn := setupTestDB(t)
	createAdherent(t, conn, "Rapport", 0)
	annee, _ := NewAnneeService(conn).Create(2025)
	appel, _ := NewAppelService(conn).Create(2025, 100, "", 1, "2025-01-01")
	var cot models.Cotisation
	conn.Where("appel_id = ?", appel.ID).First(&cot)
	if _, err := NewCotisationService(conn).EnregistrerPaiement(cot.ID, PaiementInput{Montant: 40, DatePaiement: "2025-02-01", AdminID: 1}); err != nil {
		t.Fatalf("paiement: %v", err)
	}

	rapport, err := NewRapportService(conn).Annuel(annee.ID)
	if err != nil {
		t.Fatalf("rapport: %v", err)
	}
	if rapport.Balance != 40 {
		t.Fatalf("balance = %v, want 40", rapport.Balance)
	}
	if len(rapport.Contributions) != 1 {
		t.Fatalf("contributions = %d, want 1", len(rapport.Contributions))
	}
	if len(rapport.AdherentsNonPaye) != 1 {
		t.Fatalf("adherents non payes = %d, want 1 (statut partiel)", len(rapport.AdherentsNonPaye))
	}
}

func TestAdherentDeleteCascade(t *testing.T) {
	conn := setupTestDB(t)
	a := createAdherent(t, conn, "Cascade", 0)
	appel, _ := NewAppelService(conn).Create(2025, 100, "", 1, "2025-01-01")
	var cot models.Cotisation
	conn.Where("appel_id = ? AND adherent_id = ?", appel.ID, a.ID).First(&cot)
	if _, err := NewCotisationService(conn).EnregistrerPaiement(cot.ID, PaiementInput{Montant: 10, DatePaiement: "2025-02-01", AdminID: 1}); err != nil {
		t.Fatalf("paiement: %v", err)
	}

	if err := NewAdherentService(conn).Delete(a.ID); err != nil {
		t.Fatalf("delete adherent: %v", err)
	}
	var nCot, nContrib, nHist int64
	conn.Model(&models.Cotisation{}).Where("adherent_id = ?", a.ID).Count(&nCot)
	conn.Model(&models.Contribution{}).Where("adherent_id = ?", a.ID).Count(&nContrib)
	conn.Model(&models.Historique{}).Where("adherent_id = ?", a.ID).Count(&nHist)
	if nCot != 0 || nContrib != 0 || nHist != 0 {
		t.Fatalf("cascade incomplete: cot=%d contrib=%d hist=%d", nCot, nContrib, nHist)
	}
}
