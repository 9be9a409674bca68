package plate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate/entity"
)

func validFields() entity.Fields {
	return entity.Fields{
		Nom:         "Kabila",
		PostNom:     "Kabange",
		Prenom:      "Joseph",
		District:    "Lukunga",
		Territoire:  "Gombe",
		Secteur:     "Centre",
		Village:     "Kintambo",
		Province:    "Kinshasa",
		Nationalite: "Congolaise",
		Adresse:     "12 avenue du Commerce",
		Telephone:   "+243 812-345-678",
		Email:       "j.kabila@example.cd",
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.True(t, Validate(validFields()).Empty())
}

func TestValidate_Required(t *testing.T) {
	got := Validate(entity.Fields{})
	assert.Equal(t, FieldErrors{
		Nom:         "Le nom est requis",
		PostNom:     "Le post-nom est requis",
		Prenom:      "Le prénom est requis",
		District:    "Le district est requis",
		Territoire:  "Le territoire est requis",
		Secteur:     "Le secteur est requis",
		Village:     "Le village est requis",
		Province:    "La province est requise",
		Nationalite: "La nationalité est requise",
		Adresse:     "L'adresse est requise",
		Telephone:   "Le téléphone est requis",
		Email:       "L'email est requis",
	}, got)
}

func TestValidate_Formats(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*entity.Fields)
		want   FieldErrors
	}{
		{"short phone", func(f *entity.Fields) { f.Telephone = "1234" }, FieldErrors{Telephone: "Format de téléphone invalide"}},
		{"letters in phone", func(f *entity.Fields) { f.Telephone = "08123abc45" }, FieldErrors{Telephone: "Format de téléphone invalide"}},
		{"plain digits phone", func(f *entity.Fields) { f.Telephone = "0812345678" }, FieldErrors{}},
		{"email without domain dot", func(f *entity.Fields) { f.Email = "joseph@localhost" }, FieldErrors{Email: "Format d'email invalide"}},
		{"email without at", func(f *entity.Fields) { f.Email = "joseph.example.cd" }, FieldErrors{Email: "Format d'email invalide"}},
		{"unknown province", func(f *entity.Fields) { f.Province = "Katanga" }, FieldErrors{Province: "Province inconnue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			assert.Equal(t, tt.want, Validate(f))
		})
	}
}

func TestNormalize(t *testing.T) {
	f := validFields()
	f.Nom = "  Kabila "
	f.Province = "Kinshasa\n"
	got := Normalize(f)
	assert.Equal(t, "Kabila", got.Nom)
	assert.Equal(t, "Kinshasa", got.Province)
}

func TestValidationError(t *testing.T) {
	assert.NoError(t, validationError(FieldErrors{}))

	err := validationError(FieldErrors{Nom: "Le nom est requis"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, FieldErrors{Nom: "Le nom est requis"}, ve.Fields)
}
