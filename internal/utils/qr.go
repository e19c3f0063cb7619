package utils

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// GenerateReservationQR encode la référence de réservation en QR base64
// prêt à mettre dans <img src="...">
func GenerateReservationQR(reference, date, slot string) (string, error) {
	payload := fmt.Sprintf("RESA|%s|%s|%s", reference, date, slot)

	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
