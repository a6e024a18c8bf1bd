package flows

import "strings"

var stripper = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")

// SanitizeText trims s and strips characters that could break out of
// markup or quoted contexts.
func SanitizeText(s string) string {
	return strings.TrimSpace(stripper.Replace(s))
}

// SanitizeEmail is SanitizeText followed by lowercasing.
func SanitizeEmail(s string) string {
	return strings.ToLower(SanitizeText(s))
}

// MaskEmail keeps the first character of the local part and the domain:
// "alice@example.com" becomes "a***@example.com". Values without a local
// part are masked entirely.
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
