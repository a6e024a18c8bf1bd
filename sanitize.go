package authguard

import "github.com/skillswap/authguard/internal/flows"

// SanitizeInput trims s and strips <, >, " and '.
func SanitizeInput(s string) string { return flows.SanitizeText(s) }

// SanitizeEmail is SanitizeInput followed by lowercasing.
func SanitizeEmail(s string) string { return flows.SanitizeEmail(s) }

// MaskEmail renders an address safe for logs: "a***@example.com".
func MaskEmail(email string) string { return flows.MaskEmail(email) }
