package platforms

import "strings"

// Canonical amenity references stored in amenities.basic.
var canonicalAmenities = map[string]bool{
	"balcony": true, "central-ac": true, "built-in-wardrobes": true, "kitchen-appliances": true,
	"covered-parking": true, "concierge": true, "lobby": true, "maids-room": true,
	"maid-service": true, "pets-allowed": true, "private-garden": true, "private-jacuzzi": true,
	"private-pool": true, "private-gym": true, "security": true, "shared-pool": true,
	"shared-spa": true, "study": true, "shared-gym": true, "view-of-water": true,
	"view-of-landmark": true, "walk-in-closet": true, "childrens-pool": true,
	"childrens-play-area": true, "barbecue-area": true, "furnished": true,
}

var propertyFinderAmenityCodes = map[string]string{
	"AC": "central-ac",
	"BA": "balcony",
	"BK": "kitchen-appliances",
	"BL": "view-of-landmark",
	"BR": "barbecue-area",
	"BW": "built-in-wardrobes",
	"CO": "childrens-pool",
	"CP": "covered-parking",
	"CS": "concierge",
	"LB": "lobby",
	"MR": "maids-room",
	"MS": "maid-service",
	"PA": "pets-allowed",
	"PG": "private-garden",
	"PJ": "private-jacuzzi",
	"PP": "private-pool",
	"PR": "childrens-play-area",
	"PY": "private-gym",
	"SE": "security",
	"SP": "shared-pool",
	"SS": "shared-spa",
	"ST": "study",
	"SY": "shared-gym",
	"VW": "view-of-water",
	"WC": "walk-in-closet",
}

var amenityAliases = map[string]string{
	"central a/c":          "central-ac",
	"central air":          "central-ac",
	"built in wardrobes":   "built-in-wardrobes",
	"kitchen appliances":   "kitchen-appliances",
	"covered parking":      "covered-parking",
	"parking":              "covered-parking",
	"concierge service":    "concierge",
	"lobby in building":    "lobby",
	"maid's room":          "maids-room",
	"maids room":           "maids-room",
	"maid service":         "maid-service",
	"pets allowed":         "pets-allowed",
	"private garden":       "private-garden",
	"private jacuzzi":      "private-jacuzzi",
	"private pool":         "private-pool",
	"private gym":          "private-gym",
	"security":             "security",
	"shared pool":          "shared-pool",
	"swimming pool":        "shared-pool",
	"shared spa":           "shared-spa",
	"study":                "study",
	"shared gym":           "shared-gym",
	"gym":                  "shared-gym",
	"view of water":        "view-of-water",
	"sea view":             "view-of-water",
	"view of landmark":     "view-of-landmark",
	"walk-in closet":       "walk-in-closet",
	"walk in closet":       "walk-in-closet",
	"children's pool":      "childrens-pool",
	"children's play area": "childrens-play-area",
	"barbecue area":        "barbecue-area",
	"bbq area":             "barbecue-area",
	"balcony":              "balcony",
	"furnished":            "furnished",
}

// amenityByName resolves a free-text feature name to a canonical reference.
func amenityByName(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if ref, ok := amenityAliases[key]; ok {
		return ref, true
	}
	slug := strings.ReplaceAll(key, " ", "-")
	if canonicalAmenities[slug] {
		return slug, true
	}
	return "", false
}

// collectAmenities resolves each raw entry, sending unknown ones to the
// free-text list. The returned warnings name every unknown entry.
func collectAmenities(raw []string, resolve func(string) (string, bool)) (basic []string, other []string, warnings []string) {
	seen := map[string]bool{}
	for _, r := range raw {
		ref, ok := resolve(r)
		if !ok {
			other = append(other, r)
			warnings = append(warnings, "Unknown amenity \""+r+"\" kept as free text")
			continue
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		basic = append(basic, ref)
	}
	return basic, other, warnings
}
