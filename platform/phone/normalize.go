// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "US"

// Numbers parses and formats phone numbers. Numbers entered without a
// country prefix are read as numbers of its region. The zero value uses
// DefaultRegion.
type Numbers struct {
	region string
}

// New returns Numbers for an ISO 3166 region code such as "US" or "CA".
// Empty or unknown codes fall back to DefaultRegion.
func New(region string) Numbers {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" || phonenumbers.GetCountryCodeForRegion(region) == 0 {
		region = DefaultRegion
	}
	return Numbers{region: region}
}

// Region returns the region applied to numbers without a country prefix.
func (n Numbers) Region() string {
	if n.region == "" {
		return DefaultRegion
	}
	return n.region
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func (n Numbers) NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	number, ok := n.parse(trimmed)
	if !ok {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether input parses to a dialable number.
func (n Numbers) IsValid(input string) bool {
	_, ok := n.parse(strings.TrimSpace(input))
	return ok
}

func (n Numbers) parse(trimmed string) (*phonenumbers.PhoneNumber, bool) {
	if trimmed == "" {
		return nil, false
	}
	number, err := phonenumbers.Parse(trimmed, n.Region())
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return nil, false
	}
	return number, true
}
