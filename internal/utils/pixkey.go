package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{10,14}$`)
)

// ValidatePixKey проверяет PIX-ключ в зависимости от его типа.
// Поддерживаются типы cpf, cnpj, email, phone и random (EVP).
func ValidatePixKey(key, keyType string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}

	switch keyType {
	case "cpf":
		return ValidateCPF(key)
	case "cnpj":
		return ValidateCNPJ(key)
	case "email":
		return emailRe.MatchString(key)
	case "phone":
		return phoneRe.MatchString(key)
	case "random":
		_, err := uuid.Parse(key)
		return err == nil
	default:
		return false
	}
}

// ValidateCPF проверяет контрольные цифры CPF (11 цифр).
func ValidateCPF(cpf string) bool {
	digits := onlyDigits(cpf)
	if len(digits) != 11 || allSame(digits) {
		return false
	}

	for _, pos := range []int{9, 10} {
		var sum int
		for i := 0; i < pos; i++ {
			sum += digits[i] * (pos + 1 - i)
		}
		check := (sum * 10) % 11
		if check == 10 {
			check = 0
		}
		if check != digits[pos] {
			return false
		}
	}
	return true
}

// ValidateCNPJ проверяет контрольные цифры CNPJ (14 цифр).
func ValidateCNPJ(cnpj string) bool {
	digits := onlyDigits(cnpj)
	if len(digits) != 14 || allSame(digits) {
		return false
	}

	weights := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	for _, pos := range []int{12, 13} {
		var sum int
		for i := 0; i < pos; i++ {
			sum += digits[i] * weights[len(weights)-pos+i]
		}
		check := sum % 11
		if check < 2 {
			check = 0
		} else {
			check = 11 - check
		}
		if check != digits[pos] {
			return false
		}
	}
	return true
}

// onlyDigits возвращает цифры строки, отбрасывая разделители форматирования.
func onlyDigits(s string) []int {
	var digits []int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '-' || r == '/':
			// допустимые разделители в форматированном CPF/CNPJ
		default:
			return nil
		}
	}
	return digits
}

// allSame сообщает, состоит ли номер из одной повторяющейся цифры.
func allSame(digits []int) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}
