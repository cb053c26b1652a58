package platforms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hena/stays/internal/xmlfeed"
)

const propertyFinderFeed = `<?xml version="1.0" encoding="UTF-8"?>
<list last_update="2024-05-01 08:00:00" listing_count="2">
  <property last_update="2024-04-30 12:00:00">
    <reference_number>PF-1001</reference_number>
    <permit_number>7112345678</permit_number>
    <offering_type>RR</offering_type>
    <property_type>AP</property_type>
    <price><yearly>120000</yearly><monthly>11000</monthly></price>
    <city>Dubai</city>
    <community>Dubai Marina</community>
    <sub_community>Marina Gate</sub_community>
    <property_name>Marina Gate 1</property_name>
    <title_en>Sea view 2BR</title_en>
    <description_en><![CDATA[<p>Bright unit</p><p>Close to tram</p>]]></description_en>
    <private_amenities>BA,CP,XX</private_amenities>
    <size>1250</size>
    <bedroom>2</bedroom>
    <bathroom>3</bathroom>
    <agent>
      <name>Sara Ali</name>
      <email>sara@agency.ae</email>
      <phone>0501234567</phone>
      <photo>https://cdn.example.com/sara.jpg</photo>
    </agent>
    <photo>
      <url last_update="2024-04-01 00:00:00">https://cdn.example.com/1.jpg</url>
      <url>https://cdn.example.com/2.jpg</url>
    </photo>
    <geopoints>55.1403,25.0798</geopoints>
  </property>
  <property>
    <reference_number>PF-1002</reference_number>
    <offering_type>CS</offering_type>
    <property_type>OF</property_type>
    <bedroom>studio</bedroom>
    <agent><name>No Mail</name></agent>
  </property>
</list>`

func parsePropertyFinder(t *testing.T) (xmlfeed.Document, []any) {
	t.Helper()
	doc, err := xmlfeed.Parse([]byte(propertyFinderFeed))
	require.NoError(t, err)
	a := NewPropertyFinderAdapter()
	return doc, xmlfeed.List(doc[a.RecordKey()])
}

func TestPropertyFinder_FeedUpdatedAt(t *testing.T) {
	doc, _ := parsePropertyFinder(t)

	got, ok := NewPropertyFinderAdapter().FeedUpdatedAt(doc)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC).Equal(got))
}

func TestPropertyFinder_ExtractComplete(t *testing.T) {
	_, records := parsePropertyFinder(t)
	require.Len(t, records, 2)

	res, err := NewPropertyFinderAdapter().Extract(records[0])
	require.NoError(t, err)
	require.NotNil(t, res.Agent)
	require.NotNil(t, res.Property)

	assert.Equal(t, "sara@agency.ae", res.Agent.Email)
	assert.Equal(t, "Sara Ali", res.Agent.Name)
	assert.Equal(t, "0501234567", res.Agent.Phone)
	assert.Equal(t, "https://cdn.example.com/sara.jpg", res.Agent.Photo)

	p := res.Property
	assert.True(t, p.IsEligible)
	assert.Nil(t, p.ID)
	assert.Equal(t, "PF-1001", p.ReferenceNumber())
	assert.True(t, time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC).Equal(p.XMLMetaData.LastUpdated))
	assert.Equal(t, "Sea view 2BR", p.Title)
	assert.Equal(t, "Bright unit\nClose to tram", p.Description)
	assert.Equal(t, 120000.0, p.Price.Value)
	assert.Equal(t, "Yearly", p.Price.RentalDuration)
	assert.Equal(t, "AED", p.Price.Currency)
	assert.Equal(t, "Residential", p.Category)
	assert.Equal(t, "Apartment", p.SubCategory)
	assert.Equal(t, 2, p.Bedrooms)
	assert.Equal(t, 3, p.Toilets)
	assert.Equal(t, 1250.0, p.Area)
	assert.Equal(t, []string{"7112345678"}, p.PermitNumbers)
	assert.Equal(t, []string{"balcony", "covered-parking"}, p.Amenities.Basic)
	assert.Equal(t, "XX", p.Amenities.Other)
	assert.Equal(t, []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}, p.Images)
	assert.Equal(t, "Marina Gate 1, Marina Gate, Dubai Marina, Dubai", p.Location.Address)
	require.NotNil(t, p.Location.Coordinates)
	assert.Equal(t, 25.0798, p.Location.Coordinates.Lat)
	assert.Equal(t, 55.1403, p.Location.Coordinates.Lng)

	assert.Equal(t, []string{`Unknown amenity "XX" kept as free text`}, res.Warnings)
}

func TestPropertyFinder_ExtractMissingAgentEmail(t *testing.T) {
	_, records := parsePropertyFinder(t)

	res, err := NewPropertyFinderAdapter().Extract(records[1])
	require.NoError(t, err)
	assert.Nil(t, res.Agent)
	require.NotNil(t, res.Property)
	assert.Equal(t, "Commercial", res.Property.Category)
	assert.Equal(t, "Office Space", res.Property.SubCategory)
	assert.Equal(t, 0, res.Property.Bedrooms)
	assert.Contains(t, res.Warnings, "Price is missing")
	assert.Contains(t, res.Warnings, "Permit number is missing")
	assert.Contains(t, res.Warnings, "Coordinates are missing")
	assert.Contains(t, res.Warnings, "Last update date is missing or invalid")
}

func TestPropertyFinder_ExtractMissingReference(t *testing.T) {
	res, err := NewPropertyFinderAdapter().Extract(map[string]any{
		"agent": map[string]any{"email": "a@b.c"},
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Agent)
	assert.Nil(t, res.Property)
}

func TestPropertyFinder_ExtractNotAnElement(t *testing.T) {
	_, err := NewPropertyFinderAdapter().Extract("just text")
	assert.Error(t, err)
}

func TestPropertyFinder_SalePrice(t *testing.T) {
	res, err := NewPropertyFinderAdapter().Extract(map[string]any{
		"reference_number": "S-1",
		"offering_type":    "RS",
		"property_type":    "VH",
		"price":            2500000.0,
		"agent":            map[string]any{"email": "a@b.c"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Property)
	assert.Equal(t, 2500000.0, res.Property.Price.Value)
	assert.Empty(t, res.Property.Price.RentalDuration)
	assert.Equal(t, "Villa", res.Property.SubCategory)
}
