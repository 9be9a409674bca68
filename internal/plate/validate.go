package plate

import (
	"regexp"
	"strings"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/province"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9\s-]{8,}$`)
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// FieldErrors holds one optional message per form field.
type FieldErrors struct {
	Nom         string `json:"nom,omitempty"`
	PostNom     string `json:"postNom,omitempty"`
	Prenom      string `json:"prenom,omitempty"`
	District    string `json:"district,omitempty"`
	Territoire  string `json:"territoire,omitempty"`
	Secteur     string `json:"secteur,omitempty"`
	Village     string `json:"village,omitempty"`
	Province    string `json:"province,omitempty"`
	Nationalite string `json:"nationalite,omitempty"`
	Adresse     string `json:"adresse,omitempty"`
	Telephone   string `json:"telephone,omitempty"`
	Email       string `json:"email,omitempty"`
}

func (e FieldErrors) Empty() bool { return e == FieldErrors{} }

// Normalize trims surrounding whitespace from every field.
func Normalize(f entity.Fields) entity.Fields {
	return entity.Fields{
		Nom:         strings.TrimSpace(f.Nom),
		PostNom:     strings.TrimSpace(f.PostNom),
		Prenom:      strings.TrimSpace(f.Prenom),
		District:    strings.TrimSpace(f.District),
		Territoire:  strings.TrimSpace(f.Territoire),
		Secteur:     strings.TrimSpace(f.Secteur),
		Village:     strings.TrimSpace(f.Village),
		Province:    strings.TrimSpace(f.Province),
		Nationalite: strings.TrimSpace(f.Nationalite),
		Adresse:     strings.TrimSpace(f.Adresse),
		Telephone:   strings.TrimSpace(f.Telephone),
		Email:       strings.TrimSpace(f.Email),
	}
}

func required(v, msg string) string {
	if v == "" {
		return msg
	}
	return ""
}

// Validate checks a normalized form.
func Validate(f entity.Fields) FieldErrors {
	e := FieldErrors{
		Nom:         required(f.Nom, "Le nom est requis"),
		PostNom:     required(f.PostNom, "Le post-nom est requis"),
		Prenom:      required(f.Prenom, "Le prénom est requis"),
		District:    required(f.District, "Le district est requis"),
		Territoire:  required(f.Territoire, "Le territoire est requis"),
		Secteur:     required(f.Secteur, "Le secteur est requis"),
		Village:     required(f.Village, "Le village est requis"),
		Province:    required(f.Province, "La province est requise"),
		Nationalite: required(f.Nationalite, "La nationalité est requise"),
		Adresse:     required(f.Adresse, "L'adresse est requise"),
		Telephone:   required(f.Telephone, "Le téléphone est requis"),
		Email:       required(f.Email, "L'email est requis"),
	}
	if e.Province == "" && !province.IsKnown(f.Province) {
		e.Province = "Province inconnue"
	}
	if e.Telephone == "" && !phonePattern.MatchString(f.Telephone) {
		e.Telephone = "Format de téléphone invalide"
	}
	if e.Email == "" && !emailPattern.MatchString(f.Email) {
		e.Email = "Format d'email invalide"
	}
	return e
}

func validationError(e FieldErrors) error {
	if e.Empty() {
		return nil
	}
	return &apperr.ValidationError{Message: "formulaire incomplet ou invalide", Fields: e}
}
