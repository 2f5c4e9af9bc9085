// Package pdf genere les documents imprimables : recu de paiement et
// rapport de depense. Les handlers mappent les modeles vers les structs
// de donnees de ce package, qui ne connait pas la base.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	mcfg "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const titre = "Tontine - Caisse de solidarite"

// RecuData : donnees d'un recu de paiement.
type RecuData struct {
	Numero       string
	Adherent     string
	Montant      string
	Date         string
	ModePaiement string
	Reference    string
	TypePaiement string
	Appel        string
	Admin        string
}

// LigneFrais : un poste de frais d'une depense.
type LigneFrais struct {
	Libelle string
	Montant string
}

// DepenseData : donnees d'un rapport de depense.
type DepenseData struct {
	Numero          string
	Defunt          string
	Relation        string
	DateDeces       string
	PaysDestination string
	Adherent        string
	Lignes          []LigneFrais
	Total           string
	Notes           string
	DateGeneration  string
}

func nouveauDocument() core.Maroto {
	cfg := mcfg.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	return maroto.New(cfg)
}

func entete(m core.Maroto, sousTitre string) {
	m.AddRow(12, text.NewCol(12, titre, props.Text{
		Size: 16, Style: fontstyle.Bold, Align: align.Center,
	}))
	m.AddRow(8, text.NewCol(12, sousTitre, props.Text{
		Size: 12, Align: align.Center,
	}))
	m.AddRow(4, line.NewCol(12))
}

func ligneInfo(m core.Maroto, label, valeur string) {
	if valeur == "" {
		return
	}
	m.AddRow(7,
		text.NewCol(4, label, props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(8, valeur, props.Text{Size: 10}),
	)
}

// Recu genere le recu PDF d'un paiement.
func Recu(data RecuData) ([]byte, error) {
	m := nouveauDocument()
	entete(m, fmt.Sprintf("Recu de paiement n° %s", data.Numero))

	ligneInfo(m, "Adherent", data.Adherent)
	ligneInfo(m, "Type", data.TypePaiement)
	ligneInfo(m, "Appel de fonds", data.Appel)
	ligneInfo(m, "Date", data.Date)
	ligneInfo(m, "Mode de paiement", data.ModePaiement)
	ligneInfo(m, "Reference", data.Reference)
	ligneInfo(m, "Enregistre par", data.Admin)

	m.AddRow(6, line.NewCol(12))
	m.AddRow(10,
		text.NewCol(4, "Montant", props.Text{Size: 12, Style: fontstyle.Bold}),
		text.NewCol(8, data.Montant, props.Text{Size: 12, Style: fontstyle.Bold}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generer recu: %w", err)
	}
	return doc.GetBytes(), nil
}

// RapportDepense genere le rapport PDF detaille d'une depense.
func RapportDepense(data DepenseData) ([]byte, error) {
	m := nouveauDocument()
	entete(m, fmt.Sprintf("Rapport de depense n° %s", data.Numero))

	ligneInfo(m, "Defunt", data.Defunt)
	ligneInfo(m, "Relation", data.Relation)
	ligneInfo(m, "Date du deces", data.DateDeces)
	ligneInfo(m, "Pays de destination", data.PaysDestination)
	ligneInfo(m, "Adherent concerne", data.Adherent)

	m.AddRow(6, line.NewCol(12))
	m.AddRow(8,
		text.NewCol(8, "Poste de frais", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(4, "Montant", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, ligne := range data.Lignes {
		m.AddRow(6,
			text.NewCol(8, ligne.Libelle, props.Text{Size: 9}),
			text.NewCol(4, ligne.Montant, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(4, line.NewCol(12))
	m.AddRow(9,
		text.NewCol(8, "Total", props.Text{Size: 11, Style: fontstyle.Bold}),
		text.NewCol(4, data.Total, props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
	)

	if data.Notes != "" {
		m.AddRow(6, col.New(12))
		m.AddRow(7, text.NewCol(12, "Notes : "+data.Notes, props.Text{Size: 9}))
	}
	if data.DateGeneration != "" {
		m.AddRow(4, col.New(12))
		m.AddRow(5, text.NewCol(12, "Genere le "+data.DateGeneration, props.Text{
			Size: 8, Align: align.Right,
		}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generer rapport depense: %w", err)
	}
	return doc.GetBytes(), nil
}

// UniquePath retourne un chemin libre dans dir pour name, en suffixant
// _2, _3... si le fichier existe deja. Le repertoire est cree au besoin.
func UniquePath(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creer repertoire %s: %w", dir, err)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidat := filepath.Join(dir, name)
	for i := 2; ; i++ {
		if _, err := os.Stat(candidat); os.IsNotExist(err) {
			return candidat, nil
		}
		candidat = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
}
