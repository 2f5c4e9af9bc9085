package services

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-tontine/internal/config"
	"github.com/diewo77/go-tontine/internal/models"
)

// AdherentService gere le cycle de vie des adherents.
type AdherentService struct {
	DB *gorm.DB
}

func NewAdherentService(db *gorm.DB) *AdherentService { return &AdherentService{DB: db} }

// Create enregistre un nouvel adherent et journalise l'inscription.
// Frais d'entree a zero = consideres payes; sinon impayes par defaut.
func (s *AdherentService) Create(a *models.Adherent) error {
	if a.FraisEntree <= 0 {
		a.FraisEntree = 0
		a.FraisEntreePaye = true
	} else {
		a.FraisEntreePaye = false
	}
	if a.DateEntree == "" {
		a.DateEntree = time.Now().Format(config.ISODateFormat)
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("create adherent: %w", err)
		}
		desc := fmt.Sprintf("Inscription de %s", a.NomComplet())
		if err := logHistorique(tx, a.ID, models.EvtInscription, desc, 0, 0); err != nil {
			return err
		}
		if a.FraisEntree > 0 {
			desc := fmt.Sprintf("Frais d'entree : %.2f %s (impaye)", a.FraisEntree, config.CurrencySymbol)
			if err := logHistorique(tx, a.ID, models.EvtFraisEntree, desc, a.FraisEntree, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

// Champs modifiables via Update.
var adherentChampsValides = map[string]bool{
	"nom": true, "prenom": true, "telephone": true, "email": true,
	"adresse": true, "date_entree": true, "date_sortie": true, "actif": true,
	"frais_entree": true, "frais_entree_paye": true, "notes": true,
}

// Update applique les champs reconnus. Retourne false si aucun champ valide
// n'est fourni (aucune ecriture dans ce cas).
func (s *AdherentService) Update(id uint, champs map[string]any) (bool, error) {
	filtres := map[string]any{}
	for champ, valeur := range champs {
		if adherentChampsValides[champ] {
			filtres[champ] = valeur
		}
	}
	if len(filtres) == 0 {
		return false, nil
	}
	res := s.DB.Model(&models.Adherent{}).Where("id = ?", id).Updates(filtres)
	if res.Error != nil {
		return false, fmt.Errorf("update adherent %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return true, nil
}

// Delete supprime l'adherent. Les cotisations, contributions et entrees
// d'historique dependantes partent en cascade (foreign keys).
func (s *AdherentService) Delete(id uint) error {
	res := s.DB.Delete(&models.Adherent{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete adherent %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID retourne un adherent ou gorm.ErrRecordNotFound.
func (s *AdherentService) GetByID(id uint) (*models.Adherent, error) {
	var a models.Adherent
	if err := s.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// List retourne les adherents tries par nom puis prenom.
func (s *AdherentService) List(actifsSeulement bool) ([]models.Adherent, error) {
	q := s.DB.Order("nom, prenom")
	if actifsSeulement {
		q = q.Where("actif = ?", true)
	}
	var adherents []models.Adherent
	err := q.Find(&adherents).Error
	return adherents, err
}

// Search cherche sans casse dans nom, prenom et telephone.
func (s *AdherentService) Search(motCle string) ([]models.Adherent, error) {
	terme := "%" + strings.ToLower(strings.TrimSpace(motCle)) + "%"
	var adherents []models.Adherent
	err := s.DB.
		Where("LOWER(nom) LIKE ? OR LOWER(prenom) LIKE ? OR LOWER(telephone) LIKE ?", terme, terme, terme).
		Order("nom, prenom").Find(&adherents).Error
	return adherents, err
}

// Toggle inverse le statut actif et journalise l'evenement.
// La desactivation renseigne la date de sortie si elle est vide.
func (s *AdherentService) Toggle(id, adminID uint) (*models.Adherent, error) {
	var a models.Adherent
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&a, id).Error; err != nil {
			return err
		}
		maj := map[string]any{"actif": !a.Actif}
		evt := models.EvtActivation
		desc := fmt.Sprintf("Reactivation de %s", a.NomComplet())
		if a.Actif {
			evt = models.EvtDesactivation
			desc = fmt.Sprintf("Desactivation de %s", a.NomComplet())
			if a.DateSortie == "" {
				maj["date_sortie"] = time.Now().Format(config.ISODateFormat)
			}
		} else {
			maj["date_sortie"] = ""
		}
		if err := tx.Model(&a).Updates(maj).Error; err != nil {
			return fmt.Errorf("toggle adherent %d: %w", id, err)
		}
		return logHistorique(tx, a.ID, evt, desc, 0, adminID)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}
