package util

const (
	WhatsAppChannel = "whatsapp:"
	CountryCode     = "+91"
)

// NormalizeRecipient builds the provider address for a caller-supplied number.
// The input is concatenated verbatim: a number that already carries +91 ends
// up prefixed twice.
func NormalizeRecipient(rawPhone string) string {
	return ChannelAddress(CountryCode + rawPhone)
}

// ChannelAddress prefixes an international number with the WhatsApp channel marker.
func ChannelAddress(number string) string {
	return WhatsAppChannel + number
}

// StrictPhone reports whether p is a bare 10-digit national number.
func StrictPhone(p string) bool {
	if len(p) != 10 {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}
