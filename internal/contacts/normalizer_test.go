package contacts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	opts := Options{DefaultCountryCode: "+49", TrunkPrefix: "0"}

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"strips formatting", "(030) 123-45 67", "+49301234567"},
		{"trunk prefix replaced", "030 1234567", "+49301234567"},
		{"international plus passes through", "+1 555 123 4567", "+15551234567"},
		{"double zero prefix converted", "0049 30 1234567", "+49301234567"},
		{"bare national number gains country code", "301234567", "+49301234567"},
		{"empty input", "   ", ""},
		{"punctuation only", "- () ", ""},
		{"lone plus", "+", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NormalizePhone(tc.input, opts))
		})
	}
}

func TestNormalizeDeduplicatesByNumber(t *testing.T) {
	raw := []RawContact{
		{GivenName: "Ada", FamilyName: "Lovelace", PhoneNumbers: []string{"0171 111 2222"}},
		{GivenName: "A.", FamilyName: "Lovelace", PhoneNumbers: []string{"+491711112222"}},
	}

	out := Normalize(raw, Options{DefaultCountryCode: "+49", TrunkPrefix: "0"})

	require.Len(t, out, 1)
	// First-seen name wins on collision.
	require.Equal(t, "Ada Lovelace", out[0].Name)
	require.Equal(t, "+491711112222", out[0].PhoneNumber)
}

func TestNormalizeExpandsMultipleNumbers(t *testing.T) {
	raw := []RawContact{
		{GivenName: "Grace", PhoneNumbers: []string{"0171 111 2222", "0172 333 4444"}},
	}

	out := Normalize(raw, Options{DefaultCountryCode: "+49", TrunkPrefix: "0"})

	require.Len(t, out, 2)
	require.Equal(t, "+491711112222", out[0].PhoneNumber)
	require.Equal(t, "+491723334444", out[1].PhoneNumber)
}

func TestNormalizeDropsContactsWithoutNumbers(t *testing.T) {
	raw := []RawContact{
		{GivenName: "No", FamilyName: "Phone"},
		{GivenName: "Bad", PhoneNumbers: []string{"---"}},
		{GivenName: "Kept", PhoneNumbers: []string{"0171 555 0000"}},
	}

	out := Normalize(raw, Options{DefaultCountryCode: "+49", TrunkPrefix: "0"})

	require.Len(t, out, 1)
	require.Equal(t, "Kept", out[0].Name)
}

func TestNormalizeFallsBackToOrganizationName(t *testing.T) {
	raw := []RawContact{
		{Organization: "Acme GmbH", PhoneNumbers: []string{"0171 555 0000"}},
	}

	out := Normalize(raw, Options{DefaultCountryCode: "+49", TrunkPrefix: "0"})

	require.Len(t, out, 1)
	require.Equal(t, "Acme GmbH", out[0].Name)
}

func TestNormalizeUsesDefaultOptionsWhenUnset(t *testing.T) {
	raw := []RawContact{
		{GivenName: "Sam", PhoneNumbers: []string{"555 123 4567"}},
	}

	out := Normalize(raw, Options{})

	require.Len(t, out, 1)
	require.Equal(t, "+15551234567", out[0].PhoneNumber)
}
