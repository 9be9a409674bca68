package access

import (
	"fmt"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
)

// EffectiveProvince is the province filter applied to record, account and
// department queries. Empty means all provinces.
func EffectiveProvince(id Identity, requested string) string {
	if id.IsAdmin() {
		return requested
	}
	return id.Province
}

// FormProvince returns the default province of the record form and whether
// the caller may change it.
func FormProvince(id Identity) (string, bool) {
	if id.IsAdmin() {
		return "", true
	}
	return id.Province, false
}

// CanAdminister gates account and department administration.
func CanAdminister(id Identity) bool { return id.IsAdmin() }

// Visible reports whether a row belonging to province may be read or changed by id.
func Visible(id Identity, province string) bool {
	return id.IsAdmin() || id.Province == province
}

func RequireAdmin(id Identity) error {
	if !CanAdminister(id) {
		return fmt.Errorf("%s: %w", id.Matricule, apperr.ErrAuthorization)
	}
	return nil
}

// AuthorizeProvince rejects writes by a standard account into another province.
func AuthorizeProvince(id Identity, province string) error {
	if !Visible(id, province) {
		return fmt.Errorf("province %q outside %q: %w", province, id.Province, apperr.ErrAuthorization)
	}
	return nil
}

// Capabilities lists the administrative affordances shown to id.
type Capabilities struct {
	CreateAccount  bool `json:"createAccount"`
	EditAccount    bool `json:"editAccount"`
	DeleteAccount  bool `json:"deleteAccount"`
	SelectRole     bool `json:"selectRole"`
	ChooseProvince bool `json:"chooseProvince"`
	ManageDepts    bool `json:"manageDepartments"`
}

func CapabilitiesOf(id Identity) Capabilities {
	admin := CanAdminister(id)
	_, choose := FormProvince(id)
	return Capabilities{
		CreateAccount:  admin,
		EditAccount:    admin,
		DeleteAccount:  admin,
		SelectRole:     admin,
		ChooseProvince: choose,
		ManageDepts:    admin,
	}
}
