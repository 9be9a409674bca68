package plate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/province"
)

// defaultDistrictCode stands in for an empty district.
const defaultDistrictCode = "A"

// GenerateNumber derives the plate number "YYMM/PP/D" from the province,
// the district initial and the month of when. Two records of the same month,
// province and district initial get the same number.
func GenerateNumber(provinceName, district string, when time.Time) string {
	return fmt.Sprintf("%02d%02d/%s/%s",
		when.Year()%100,
		int(when.Month()),
		province.Code(provinceName),
		districtCode(district),
	)
}

func districtCode(district string) string {
	if district == "" {
		return defaultDistrictCode
	}
	r, _ := utf8.DecodeRuneInString(district)
	return strings.ToUpper(string(r))
}
