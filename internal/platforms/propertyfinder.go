package platforms

import (
	"strconv"
	"strings"
	"time"

	"hena/stays/internal/models"
	"hena/stays/internal/xmlfeed"
)

var propertyFinderTypes = map[string]string{
	"AP": "Apartment",
	"BU": "Bulk Units",
	"BW": "Bungalow",
	"CD": "Compound",
	"DX": "Duplex",
	"FA": "Factory",
	"FF": "Full Floor",
	"HA": "Hotel Apartment",
	"HF": "Half Floor",
	"LC": "Labor Camp",
	"LP": "Land",
	"OF": "Office Space",
	"PH": "Penthouse",
	"RE": "Retail",
	"SH": "Shop",
	"SR": "Show Room",
	"ST": "Staff Accommodation",
	"TH": "Townhouse",
	"VH": "Villa",
	"WB": "Whole Building",
	"WH": "Warehouse",
}

// rent periods in order of preference
var rentPeriods = []struct{ key, label string }{
	{"yearly", "Yearly"},
	{"monthly", "Monthly"},
	{"weekly", "Weekly"},
	{"daily", "Daily"},
}

type propertyFinderAdapter struct{}

// NewPropertyFinderAdapter handles `<list><property>...</property></list>` feeds.
func NewPropertyFinderAdapter() Adapter {
	return &propertyFinderAdapter{}
}

func (a *propertyFinderAdapter) Platform() string { return "propertyfinder" }

func (a *propertyFinderAdapter) RecordKey() string { return "property" }

func (a *propertyFinderAdapter) FeedUpdatedAt(doc xmlfeed.Document) (time.Time, bool) {
	return parseTime(doc["last_update"])
}

func (a *propertyFinderAdapter) Extract(record any) (Extraction, error) {
	rec, err := recordMap(record)
	if err != nil {
		return Extraction{}, err
	}

	var res Extraction
	warn := func(msg string) { res.Warnings = append(res.Warnings, msg) }

	res.Agent = a.agent(rec)

	ref := xmlfeed.String(rec["reference_number"])
	if ref == "" {
		return res, nil
	}

	details := models.PropertyDetails{
		Title:       xmlfeed.String(rec["title_en"]),
		Description: htmlToText(xmlfeed.String(rec["description_en"])),
		Bedrooms:    a.bedrooms(rec["bedroom"]),
		Toilets:     intValue(rec["bathroom"]),
		Images:      xmlfeed.Strings(lookup(rec, "photo", "url")),
	}
	details.Area, _ = xmlfeed.Number(rec["size"])

	lastUpdated, ok := parseTime(rec["last_update"])
	if !ok {
		warn("Last update date is missing or invalid")
	}
	details.XMLMetaData = &models.XMLMetaData{ReferenceNumber: ref, LastUpdated: lastUpdated}

	city := xmlfeed.String(rec["city"])
	community := xmlfeed.String(rec["community"])
	details.Location = models.Location{
		Address:   joinNonEmpty(", ", xmlfeed.String(rec["property_name"]), xmlfeed.String(rec["sub_community"]), community, city),
		City:      city,
		Community: community,
	}
	if coords, ok := a.coordinates(rec["geopoints"]); ok {
		details.Location.Coordinates = coords
	} else {
		warn("Coordinates are missing")
	}

	offering := strings.ToUpper(xmlfeed.String(rec["offering_type"]))
	details.Category = "Residential"
	if strings.HasPrefix(offering, "C") {
		details.Category = "Commercial"
	}
	code := strings.ToUpper(xmlfeed.String(rec["property_type"]))
	if name, ok := propertyFinderTypes[code]; ok {
		details.SubCategory = name
	} else {
		details.SubCategory = code
		warn("Unknown property type \"" + code + "\"")
	}

	details.Price = models.Price{Currency: defaultCurrency}
	rent := strings.HasSuffix(offering, "R")
	if !a.price(rec["price"], rent, &details.Price) {
		warn("Price is missing")
	}

	if permit := xmlfeed.String(rec["permit_number"]); permit != "" {
		details.PermitNumbers = []string{permit}
	} else {
		warn("Permit number is missing")
	}

	codes := append(splitCodes(xmlfeed.String(rec["private_amenities"])), splitCodes(xmlfeed.String(rec["commercial_amenities"]))...)
	basic, other, amenityWarnings := collectAmenities(codes, func(c string) (string, bool) {
		ref, ok := propertyFinderAmenityCodes[strings.ToUpper(c)]
		return ref, ok
	})
	details.Amenities = models.Amenities{Basic: basic, Other: strings.Join(other, ", ")}
	res.Warnings = append(res.Warnings, amenityWarnings...)

	prop := models.NewXMLProperty(details)
	res.Property = &prop
	return res, nil
}

func (a *propertyFinderAdapter) agent(rec map[string]any) *models.XMLAgent {
	agent, ok := xmlfeed.Map(rec["agent"])
	if !ok {
		return nil
	}
	email := xmlfeed.String(agent["email"])
	if email == "" {
		return nil
	}
	return &models.XMLAgent{
		Name:  xmlfeed.String(agent["name"]),
		Email: email,
		Phone: xmlfeed.String(agent["phone"]),
		Photo: xmlfeed.String(agent["photo"]),
	}
}

func (a *propertyFinderAdapter) bedrooms(v any) int {
	if strings.EqualFold(xmlfeed.String(v), "studio") {
		return 0
	}
	return intValue(v)
}

// coordinates reads "longitude,latitude".
func (a *propertyFinderAdapter) coordinates(v any) (*models.Coordinates, bool) {
	parts := strings.Split(xmlfeed.String(v), ",")
	if len(parts) != 2 {
		return nil, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, false
	}
	return &models.Coordinates{Lat: lat, Lng: lng}, true
}

// price handles both a plain sale price and the per-period rent element.
func (a *propertyFinderAdapter) price(v any, rent bool, out *models.Price) bool {
	if periods, ok := xmlfeed.Map(v); ok {
		for _, p := range rentPeriods {
			if n, ok := xmlfeed.Number(periods[p.key]); ok && n > 0 {
				out.Value = n
				out.RentalDuration = p.label
				return true
			}
		}
		if n, ok := xmlfeed.Number(periods[xmlfeed.TextKey]); ok && n > 0 {
			out.Value = n
			return true
		}
		return false
	}
	n, ok := xmlfeed.Number(v)
	if !ok || n <= 0 {
		return false
	}
	out.Value = n
	if rent {
		out.RentalDuration = "Yearly"
	}
	return true
}

func lookup(rec map[string]any, path ...string) any {
	v, _ := xmlfeed.Lookup(rec, path...)
	return v
}
