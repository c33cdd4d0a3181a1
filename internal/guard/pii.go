package guard

import "strings"

// LuhnCheck validates a card-like digit string using the Luhn algorithm
func LuhnCheck(cardNumber string) bool {
	cardNumber = strings.ReplaceAll(cardNumber, " ", "")
	cardNumber = strings.ReplaceAll(cardNumber, "-", "")

	if len(cardNumber) < 13 || len(cardNumber) > 19 {
		return false
	}

	sum := 0
	isSecond := false
	for i := len(cardNumber) - 1; i >= 0; i-- {
		c := cardNumber[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if isSecond {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		isSecond = !isSecond
	}

	return sum%10 == 0
}

// LooksLikeSSN filters XXX-XX-XXXX matches against known invalid SSN groups
func LooksLikeSSN(s string) bool {
	digits := strings.ReplaceAll(s, "-", "")
	if len(digits) != 9 {
		return false
	}
	if digits[:3] == "000" || digits[3:5] == "00" || digits[5:] == "0000" {
		return false
	}
	if strings.HasPrefix(digits, "666") || strings.HasPrefix(digits, "9") {
		return false
	}
	return true
}

// SafeExcerpt produces a bounded excerpt of text with all redactable PII
// already replaced, suitable for storing on a violation record. The bound is
// in runes so truncation never leaves invalid UTF-8.
func SafeExcerpt(text string, maxLen int) string {
	redacted := Redact(text, Scan(text))
	if maxLen <= 0 {
		return redacted
	}
	runes := []rune(redacted)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return redacted
}
