package contacts

import "strings"

// RawContact mirrors a device address-book record as supplied by the external
// contact source. Access denial upstream simply yields zero records.
type RawContact struct {
	GivenName    string
	FamilyName   string
	PhoneNumbers []string
	Organization string
	ThumbnailURL string
}

// Contact is a canonical, session-scoped invite candidate. Contacts are never
// persisted; the set is rebuilt from the address book on each refresh.
type Contact struct {
	Name         string `json:"name"`
	PhoneNumber  string `json:"phone_number"` // E.164
	Organization string `json:"organization,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Options control phone canonicalisation.
type Options struct {
	DefaultCountryCode string // e.g. "+1"
	TrunkPrefix        string // leading national dialling digit, e.g. "0"
}

// DefaultOptions match the primary launch market.
func DefaultOptions() Options {
	return Options{DefaultCountryCode: "+1", TrunkPrefix: "0"}
}

// Normalize canonicalises raw address-book records into a deduplicated
// candidate list with one entry per distinct E.164 number. The first record
// seen for a number wins on name collisions. Records without any usable phone
// number are dropped silently.
func Normalize(raw []RawContact, opts Options) []Contact {
	if opts.DefaultCountryCode == "" {
		opts = DefaultOptions()
	}

	seen := make(map[string]struct{})
	out := make([]Contact, 0, len(raw))

	for _, record := range raw {
		name := displayName(record)

		for _, number := range record.PhoneNumbers {
			normalized := NormalizePhone(number, opts)
			if normalized == "" {
				continue
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}

			out = append(out, Contact{
				Name:         name,
				PhoneNumber:  normalized,
				Organization: record.Organization,
				ThumbnailURL: record.ThumbnailURL,
			})
		}
	}

	return out
}

// NormalizePhone converts a free-form phone number into E.164 form:
// punctuation and whitespace are stripped, a national trunk prefix is replaced
// by the default country code, numbers already carrying an international
// prefix pass through, and bare national numbers get the default country code
// prepended. An empty string means the number is unusable.
func NormalizePhone(number string, opts Options) string {
	digits := stripFormatting(number)
	if digits == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(digits, "+"):
		if len(digits) == 1 {
			return ""
		}
		return digits
	case strings.HasPrefix(digits, "00"):
		// 00 is the ITU international call prefix.
		if len(digits) == 2 {
			return ""
		}
		return "+" + digits[2:]
	case opts.TrunkPrefix != "" && strings.HasPrefix(digits, opts.TrunkPrefix):
		rest := digits[len(opts.TrunkPrefix):]
		if rest == "" {
			return ""
		}
		return opts.DefaultCountryCode + rest
	default:
		return opts.DefaultCountryCode + digits
	}
}

func stripFormatting(number string) string {
	var b strings.Builder
	for i, r := range number {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func displayName(record RawContact) string {
	name := strings.TrimSpace(strings.TrimSpace(record.GivenName) + " " + strings.TrimSpace(record.FamilyName))
	if name != "" {
		return name
	}
	return strings.TrimSpace(record.Organization)
}
