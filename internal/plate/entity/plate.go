package entity

import "time"

// Fields are the personal, location and contact values typed into the
// registration form.
type Fields struct {
	Nom         string `db:"nom" json:"nom"`
	PostNom     string `db:"post_nom" json:"postNom"`
	Prenom      string `db:"prenom" json:"prenom"`
	District    string `db:"district" json:"district"`
	Territoire  string `db:"territoire" json:"territoire"`
	Secteur     string `db:"secteur" json:"secteur"`
	Village     string `db:"village" json:"village"`
	Province    string `db:"province" json:"province"`
	Nationalite string `db:"nationalite" json:"nationalite"`
	Adresse     string `db:"adresse" json:"adresse"`
	Telephone   string `db:"telephone" json:"telephone"`
	Email       string `db:"email" json:"email"`
}

// Plate is a registered plate row in the `plates` table. PlaqueNumber and
// QRCode are derived once at creation and never rewritten.
type Plate struct {
	ID string `db:"id" json:"id"`
	Fields
	PlaqueNumber string     `db:"plaque_number" json:"plaqueNumber"`
	QRCode       string     `db:"qr_code" json:"qrCode"`
	CreatedBy    string     `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}
