package platforms

import (
	"strings"
	"time"

	"hena/stays/internal/models"
	"hena/stays/internal/xmlfeed"
)

var commercialTypes = map[string]bool{
	"office": true, "shop": true, "warehouse": true, "retail": true, "showroom": true,
	"factory": true, "labour camp": true, "commercial building": true, "commercial floor": true,
	"commercial villa": true, "commercial plot": true, "industrial land": true,
}

// bayutAdapter reads the `<Properties><Property>` schema shared by Bayut and dubizzle.
type bayutAdapter struct {
	platform string
}

func NewBayutAdapter() Adapter {
	return &bayutAdapter{platform: "bayut"}
}

func NewDubizzleAdapter() Adapter {
	return &bayutAdapter{platform: "dubizzle"}
}

func (a *bayutAdapter) Platform() string { return a.platform }

func (a *bayutAdapter) RecordKey() string { return "Property" }

// FeedUpdatedAt uses the newest Last_Updated among the records since this
// schema has no feed-level timestamp.
func (a *bayutAdapter) FeedUpdatedAt(doc xmlfeed.Document) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, item := range xmlfeed.List(doc[a.RecordKey()]) {
		rec, ok := xmlfeed.Map(item)
		if !ok {
			continue
		}
		if t, ok := parseTime(rec["Last_Updated"]); ok && (!found || t.After(latest)) {
			latest = t
			found = true
		}
	}
	return latest, found
}

func (a *bayutAdapter) Extract(record any) (Extraction, error) {
	rec, err := recordMap(record)
	if err != nil {
		return Extraction{}, err
	}

	var res Extraction
	warn := func(msg string) { res.Warnings = append(res.Warnings, msg) }

	if email := xmlfeed.String(rec["Listing_Agent_Email"]); email != "" {
		res.Agent = &models.XMLAgent{
			Name:  xmlfeed.String(rec["Listing_Agent"]),
			Email: email,
			Phone: xmlfeed.String(rec["Listing_Agent_Phone"]),
			Photo: xmlfeed.String(rec["Listing_Agent_Photo"]),
		}
	}

	ref := xmlfeed.String(rec["Property_Ref_No"])
	if ref == "" {
		return res, nil
	}

	details := models.PropertyDetails{
		Title:       xmlfeed.String(rec["Property_Title"]),
		Description: htmlToText(xmlfeed.String(rec["Property_Description"])),
		Bedrooms:    intValue(rec["Bedrooms"]),
		Toilets:     intValue(rec["No_of_Bathroom"]),
		Images:      xmlfeed.Strings(lookup(rec, "Images", "Image")),
	}
	details.Area, _ = xmlfeed.Number(rec["Property_Size"])
	if strings.EqualFold(xmlfeed.String(rec["Bedrooms"]), "studio") {
		details.Bedrooms = 0
	}

	lastUpdated, ok := parseTime(rec["Last_Updated"])
	if !ok {
		warn("Last update date is missing or invalid")
	}
	details.XMLMetaData = &models.XMLMetaData{ReferenceNumber: ref, LastUpdated: lastUpdated}

	city := xmlfeed.String(rec["City"])
	locality := xmlfeed.String(rec["Locality"])
	details.Location = models.Location{
		Address:   joinNonEmpty(", ", xmlfeed.String(rec["Tower_Name"]), xmlfeed.String(rec["Sub_Locality"]), locality, city),
		City:      city,
		Community: locality,
	}
	lat, latOK := xmlfeed.Number(rec["Latitude"])
	lng, lngOK := xmlfeed.Number(rec["Longitude"])
	if latOK && lngOK {
		details.Location.Coordinates = &models.Coordinates{Lat: lat, Lng: lng}
	} else {
		warn("Coordinates are missing")
	}

	propertyType := xmlfeed.String(rec["Property_Type"])
	details.SubCategory = propertyType
	details.Category = "Residential"
	if commercialTypes[strings.ToLower(propertyType)] {
		details.Category = "Commercial"
	}
	if propertyType == "" {
		warn("Property type is missing")
	}

	details.Price = models.Price{Currency: defaultCurrency}
	if n, ok := xmlfeed.Number(rec["Price"]); ok && n > 0 {
		details.Price.Value = n
		if strings.EqualFold(xmlfeed.String(rec["Property_purpose"]), "rent") {
			details.Price.RentalDuration = rentFrequency(xmlfeed.String(rec["Rent_Frequency"]))
		}
	} else {
		warn("Price is missing")
	}

	if permit := xmlfeed.String(rec["Permit_Number"]); permit != "" {
		details.PermitNumbers = []string{permit}
	} else {
		warn("Permit number is missing")
	}

	basic, other, amenityWarnings := collectAmenities(xmlfeed.Strings(lookup(rec, "Features", "Feature")), amenityByName)
	details.Amenities = models.Amenities{Basic: basic, Other: strings.Join(other, ", ")}
	res.Warnings = append(res.Warnings, amenityWarnings...)

	prop := models.NewXMLProperty(details)
	res.Property = &prop
	return res, nil
}

func rentFrequency(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly":
		return "Monthly"
	case "weekly":
		return "Weekly"
	case "daily":
		return "Daily"
	default:
		return "Yearly"
	}
}
