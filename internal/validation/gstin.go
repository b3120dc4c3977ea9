// Package validation содержит функции валидации входных данных.
package validation

import "strings"

const gstinAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// IsValidGSTIN проверяет номер плательщика GST: 15 символов, двухзначный код штата,
// PAN, номер регистрации, литера Z и контрольный символ по модулю 36.
func IsValidGSTIN(gstin string) bool {
	if len(gstin) != 15 {
		return false
	}

	for i := 0; i < 2; i++ {
		if gstin[i] < '0' || gstin[i] > '9' {
			return false
		}
	}
	if gstin[:2] == "00" {
		return false
	}
	if gstin[13] != 'Z' {
		return false
	}

	sum := 0
	for i := 0; i < 14; i++ {
		value := strings.IndexByte(gstinAlphabet, gstin[i])
		if value < 0 {
			return false
		}
		factor := 1
		if i%2 == 1 {
			factor = 2
		}
		product := value * factor
		sum += product/36 + product%36
	}

	check := (36 - sum%36) % 36
	return gstin[14] == gstinAlphabet[check]
}
