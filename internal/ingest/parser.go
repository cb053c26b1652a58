package ingest

import (
	"fmt"

	"hena/stays/internal/models"
	"hena/stays/internal/platforms"
	"hena/stays/internal/xmlfeed"
)

const msgNoProperties = "No properties found in the XML"

// ParseResult is the Parser output: agents grouped by e-mail, warnings per
// reference number and record-level errors.
type ParseResult struct {
	Agents        []models.XMLAgent
	Warnings      models.Warnings
	GeneralErrors []string
}

// Parse runs adapter over every property record in doc. A record that
// cannot be extracted becomes a general error; the rest of the batch still runs.
func Parse(doc xmlfeed.Document, adapter platforms.Adapter) ParseResult {
	res := ParseResult{
		Agents:        []models.XMLAgent{},
		Warnings:      models.Warnings{},
		GeneralErrors: []string{},
	}

	records, ok := propertyRecords(doc, adapter.RecordKey())
	if !ok {
		res.GeneralErrors = append(res.GeneralErrors, msgNoProperties)
		return res
	}

	byEmail := map[string]int{}
	for i, record := range records {
		n := i + 1
		ext, err := extract(adapter, record)
		if err != nil {
			res.GeneralErrors = append(res.GeneralErrors, fmt.Sprintf("Property %d could not be parsed: %s", n, err.Error()))
			continue
		}
		if ext.Agent == nil || ext.Property == nil {
			res.GeneralErrors = append(res.GeneralErrors, fmt.Sprintf("Property %d is missing required data", n))
			continue
		}

		prop := ext.Property.Clone()
		if idx, seen := byEmail[ext.Agent.Email]; seen {
			prop.Amenities.Basic = uniqueStrings(prop.Amenities.Basic)
			res.Agents[idx].Properties = append(res.Agents[idx].Properties, prop)
		} else {
			agent := ext.Agent.Clone()
			agent.Properties = []models.XMLProperty{prop}
			byEmail[agent.Email] = len(res.Agents)
			res.Agents = append(res.Agents, agent)
		}

		if len(ext.Warnings) > 0 {
			res.Warnings[prop.ReferenceNumber()] = append([]string(nil), ext.Warnings...)
		}
	}

	return res
}

// propertyRecords returns the record list; a lone record element counts as a list of one.
func propertyRecords(doc xmlfeed.Document, key string) ([]any, bool) {
	switch v := doc[key].(type) {
	case []any:
		return v, true
	case map[string]any:
		return []any{v}, true
	default:
		return nil, false
	}
}

// extract converts adapter panics into errors so one bad record cannot stop the batch.
func extract(adapter platforms.Adapter, record any) (ext platforms.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return adapter.Extract(record)
}

func uniqueStrings(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
