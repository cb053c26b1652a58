package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PropertyStatus is the publication state of a stored property.
type PropertyStatus string

const (
	PropertyStatusActive   PropertyStatus = "Active"
	PropertyStatusInactive PropertyStatus = "Inactive"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Location describes where a property is.
type Location struct {
	Address     string       `bson:"address" json:"address"`
	City        string       `bson:"city,omitempty" json:"city,omitempty"`
	Community   string       `bson:"community,omitempty" json:"community,omitempty"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Price holds the asking price. RentalDuration is empty for sales.
type Price struct {
	Value          float64 `bson:"value" json:"value"`
	Currency       string  `bson:"currency" json:"currency"`
	RentalDuration string  `bson:"rentalDuration,omitempty" json:"rentalDuration,omitempty"` // Yearly, Monthly, Weekly, Daily
}

// Amenities splits known amenity references from free text.
type Amenities struct {
	Basic []string `bson:"basic" json:"basic"`
	Other string   `bson:"other,omitempty" json:"other,omitempty"`
}

// XMLMetaData links a property to its record in an external feed.
type XMLMetaData struct {
	ReferenceNumber string    `bson:"referenceNumber" json:"referenceNumber"`
	LastUpdated     time.Time `bson:"lastUpdated" json:"lastUpdated"`
}

// PropertyDetails is the listing payload shared by stored properties and feed records.
type PropertyDetails struct {
	Title         string       `bson:"title" json:"title"`
	Description   string       `bson:"description" json:"description"`
	Location      Location     `bson:"location" json:"location"`
	Price         Price        `bson:"price" json:"price"`
	Toilets       int          `bson:"toilets" json:"toilets"`
	Bedrooms      int          `bson:"bedrooms" json:"bedrooms"`
	Area          float64      `bson:"area" json:"area"`
	PermitNumbers []string     `bson:"permitNumbers" json:"permitNumbers"`
	Amenities     Amenities    `bson:"amenities" json:"amenities"`
	Category      string       `bson:"category" json:"category"`
	SubCategory   string       `bson:"subCategory" json:"subCategory"`
	Images        []string     `bson:"images" json:"images"`
	XMLMetaData   *XMLMetaData `bson:"xmlMetaData,omitempty" json:"xmlMetaData,omitempty"`
}

// Clone returns a deep copy.
func (d PropertyDetails) Clone() PropertyDetails {
	c := d
	c.PermitNumbers = cloneStrings(d.PermitNumbers)
	c.Images = cloneStrings(d.Images)
	c.Amenities.Basic = cloneStrings(d.Amenities.Basic)
	if d.Location.Coordinates != nil {
		coords := *d.Location.Coordinates
		c.Location.Coordinates = &coords
	}
	if d.XMLMetaData != nil {
		meta := *d.XMLMetaData
		c.XMLMetaData = &meta
	}
	return c
}

// ReferenceNumber returns the feed reference number, or "" for non-feed listings.
func (d PropertyDetails) ReferenceNumber() string {
	if d.XMLMetaData == nil {
		return ""
	}
	return d.XMLMetaData.ReferenceNumber
}

// Property is a stored listing.
type Property struct {
	Base            `bson:",inline"`
	PropertyDetails `bson:",inline"`
	CreatedBy       primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	Company         *primitive.ObjectID `bson:"company,omitempty" json:"company,omitempty"`
	Status          PropertyStatus      `bson:"status" json:"status"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
	Deleted         bool                `bson:"deleted" json:"-"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
