package payments

import (
	"regexp"
	"strings"
)

var msisdnRe = regexp.MustCompile(`^2547\d{8}$`)

// NormalizePhone strips everything non-numeric and rewrites Kenyan mobile
// numbers to international form: "0712345678" and "712345678" both become
// "254712345678". Inputs already starting with 254 pass through.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "07"):
		return "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "7"):
		return "254" + cleaned
	case strings.HasPrefix(cleaned, "254"):
		return cleaned
	default:
		return cleaned
	}
}

// ValidMSISDN reports whether phone is a normalized Safaricom mobile number.
// Intents that fail this check are never submitted to the gateway.
func ValidMSISDN(phone string) bool {
	return msisdnRe.MatchString(phone)
}
