// Package province holds the fixed list of administrative regions and their
// two-digit plate codes.
package province

// UnknownCode is the plate code used for names outside the list.
const UnknownCode = "00"

type Province struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

var all = []Province{
	{"Kinshasa", "01"},
	{"Kongo-Central", "02"},
	{"Kwango", "03"},
	{"Kwilu", "04"},
	{"Mai-Ndombe", "05"},
	{"Kasai", "06"},
	{"Kasai-Central", "07"},
	{"Kasai-Oriental", "08"},
	{"Lomami", "09"},
	{"Sankuru", "10"},
	{"Maniema", "11"},
	{"Sud-Kivu", "12"},
	{"Nord-Kivu", "13"},
	{"Ituri", "14"},
	{"Haut-Uele", "15"},
	{"Bas-Uele", "16"},
	{"Tshopo", "17"},
	{"Mongala", "18"},
	{"Equateur", "19"},
	{"Sud-Ubangi", "20"},
	{"Nord-Ubangi", "21"},
	{"Tshuapa", "22"},
	{"Haut-Lomami", "23"},
	{"Lualaba", "24"},
	{"Haut-Katanga", "25"},
	{"Tanganyika", "26"},
}

var byName = func() map[string]string {
	m := make(map[string]string, len(all))
	for _, p := range all {
		m[p.Name] = p.Code
	}
	return m
}()

// All returns the provinces in code order.
func All() []Province {
	out := make([]Province, len(all))
	copy(out, all)
	return out
}

// Code returns the plate code for name, or UnknownCode. Matching is exact.
func Code(name string) string {
	if c, ok := byName[name]; ok {
		return c
	}
	return UnknownCode
}

func IsKnown(name string) bool {
	_, ok := byName[name]
	return ok
}
