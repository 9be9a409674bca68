package plate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/boombuler/barcode/qr"
	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate/entity"
)

const (
	dataURIPrefix  = "data:image/png;base64,"
	quietZone      = 1
	DefaultQRWidth = 300
)

// Payload is the structured text embedded in the QR image. Field order is fixed.
type Payload struct {
	PlaqueNumber string `json:"plaqueNumber"`
	Nom          string `json:"nom"`
	PostNom      string `json:"postNom"`
	Prenom       string `json:"prenom"`
	Province     string `json:"province"`
	District     string `json:"district"`
	Telephone    string `json:"telephone"`
	Email        string `json:"email"`
}

func NewPayload(plaqueNumber string, f entity.Fields) Payload {
	return Payload{
		PlaqueNumber: plaqueNumber,
		Nom:          f.Nom,
		PostNom:      f.PostNom,
		Prenom:       f.Prenom,
		Province:     f.Province,
		District:     f.District,
		Telephone:    f.Telephone,
		Email:        f.Email,
	}
}

// QREncoder renders payloads as black-on-white PNG QR codes at error
// correction level H, Width pixels square with a one module quiet zone.
type QREncoder struct {
	Width int
}

func NewQREncoder(width int) *QREncoder {
	if width <= 0 {
		width = DefaultQRWidth
	}
	return &QREncoder{Width: width}
}

// Encode returns the QR image for the record as a data URI.
func (e *QREncoder) Encode(ctx context.Context, plaqueNumber string, f entity.Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := json.Marshal(NewPayload(plaqueNumber, f))
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w: %w", apperr.ErrEncoding, err)
	}
	img, err := e.render(string(text))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("png: %w: %w", apperr.ErrEncoding, err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (e *QREncoder) render(text string) (image.Image, error) {
	code, err := qr.Encode(text, qr.H, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr: %w: %w", apperr.ErrEncoding, err)
	}
	modules := code.Bounds().Dx()
	scale := e.Width / (modules + 2*quietZone)
	if scale < 1 {
		return nil, fmt.Errorf("%d modules do not fit in %dpx: %w", modules, e.Width, apperr.ErrEncoding)
	}

	img := image.NewGray(image.Rect(0, 0, e.Width, e.Width))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	offset := (e.Width - modules*scale) / 2
	origin := code.Bounds().Min
	for y := 0; y < modules; y++ {
		for x := 0; x < modules; x++ {
			if !isDark(code.At(origin.X+x, origin.Y+y)) {
				continue
			}
			cell := image.Rect(offset+x*scale, offset+y*scale, offset+(x+1)*scale, offset+(y+1)*scale)
			draw.Draw(img, cell, image.Black, image.Point{}, draw.Src)
		}
	}
	return img, nil
}

func isDark(c color.Color) bool {
	return color.GrayModel.Convert(c).(color.Gray).Y < 128
}

// DecodeDataURI reads the payload back out of an image produced by Encode.
func DecodeDataURI(uri string) (Payload, error) {
	raw, ok := strings.CutPrefix(uri, dataURIPrefix)
	if !ok {
		return Payload{}, fmt.Errorf("not a png data uri: %w", apperr.ErrEncoding)
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Payload{}, fmt.Errorf("base64: %w: %w", apperr.ErrEncoding, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Payload{}, fmt.Errorf("png: %w: %w", apperr.ErrEncoding, err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Payload{}, fmt.Errorf("bitmap: %w: %w", apperr.ErrEncoding, err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_PURE_BARCODE: true,
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
	}
	res, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return Payload{}, fmt.Errorf("scan: %w: %w", apperr.ErrEncoding, err)
	}
	var p Payload
	if err := json.Unmarshal([]byte(res.GetText()), &p); err != nil {
		return Payload{}, fmt.Errorf("payload: %w: %w", apperr.ErrEncoding, err)
	}
	return p, nil
}
