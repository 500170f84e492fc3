package reconcile

import (
	"strings"
	"time"
)

// An extractor attempts to pull one string field out of a raw payload.
// Extractors are pure; chains of them are tried in order and the first
// non-empty result wins.
type extractor func(payload map[string]interface{}) string

// atPath returns an extractor that descends nested objects by key and
// returns the string value at the end of the path.
func atPath(path ...string) extractor {
	return func(payload map[string]interface{}) string {
		node := payload
		for i, key := range path {
			val, ok := node[key]
			if !ok {
				return ""
			}
			if i == len(path)-1 {
				if s, ok := val.(string); ok {
					return strings.TrimSpace(s)
				}
				return ""
			}
			node, ok = val.(map[string]interface{})
			if !ok {
				return ""
			}
		}
		return ""
	}
}

// firstNonEmpty runs a chain of extractors and returns the first non-empty
// result.
func firstNonEmpty(payload map[string]interface{}, chain []extractor) string {
	for _, extract := range chain {
		if v := extract(payload); v != "" {
			return v
		}
	}
	return ""
}

// Extraction paths per field, covering the historically observed payload
// shapes: flat snake_case fields, camelCase fields, human-readable labeled
// keys from form builders, and the same three nested under "customData".
// Email additionally appears on the contact object and on the customer of
// checkout-style payment payloads.
var (
	emailExtractors = []extractor{
		atPath("email"),
		atPath("Email"),
		atPath("customData", "email"),
		atPath("customData", "Email"),
		atPath("contact", "email"),
		atPath("payment", "customer", "email"),
	}

	businessNameExtractors = []extractor{
		atPath("business_name"),
		atPath("businessName"),
		atPath("Business Name"),
		atPath("customData", "business_name"),
		atPath("customData", "Business Name"),
	}

	taxIDExtractors = []extractor{
		atPath("tax_id"),
		atPath("taxId"),
		atPath("Tax ID"),
		atPath("customData", "tax_id"),
		atPath("customData", "Tax ID"),
	}
)

// NormalizeProfile extracts a canonical ProfileRecord from a profile-stream
// payload. Each field is tried against an ordered list of extraction paths
// and the first non-empty result is taken.
//
// Policy for partial submissions: email is required (ErrEmailMissing when
// absent under every shape), but business name and tax id are not - a
// record carrying only an email is stored as a placeholder. The downstream
// update treats empty fields as "leave unchanged", so a placeholder that
// later reconciles is a no-op rather than an undefined write.
func NormalizeProfile(payload map[string]interface{}, receivedAt time.Time) (*ProfileRecord, error) {
	email := firstNonEmpty(payload, emailExtractors)
	if email == "" {
		return nil, ErrEmailMissing
	}

	return &ProfileRecord{
		Key:          NormalizeIdentity(email),
		BusinessName: firstNonEmpty(payload, businessNameExtractors),
		TaxID:        firstNonEmpty(payload, taxIDExtractors),
		ReceivedAt:   receivedAt,
	}, nil
}

// ExtractProfileFields returns the raw extraction results for each field,
// used to echo what was actually received back to the submitter on a
// validation failure.
func ExtractProfileFields(payload map[string]interface{}) map[string]string {
	return map[string]string{
		"email":         firstNonEmpty(payload, emailExtractors),
		"business_name": firstNonEmpty(payload, businessNameExtractors),
		"tax_id":        firstNonEmpty(payload, taxIDExtractors),
	}
}
