package salesforce

import (
	"context"

	"github.com/rotisserie/eris"
)

// LeadObject is the sObject name leads are written to.
const LeadObject = "Lead"

// LeadSource tags every record this application creates.
const LeadSource = "Web"

// unknownLastName satisfies the required LastName field when no contact
// person is known.
const unknownLastName = "Unknown"

// LeadFields holds the Lead sObject values written for a captured lead.
type LeadFields struct {
	Company     string
	Website     string
	Email       string
	Phone       string
	Industry    string
	Description string
}

// Record renders f as an sObject field map. Empty optional fields are
// omitted.
func (f LeadFields) Record() map[string]any {
	rec := map[string]any{
		"Company":    f.Company,
		"LastName":   unknownLastName,
		"LeadSource": LeadSource,
	}
	set := func(key, v string) {
		if v != "" {
			rec[key] = v
		}
	}
	set("Website", f.Website)
	set("Email", f.Email)
	set("Phone", f.Phone)
	set("Industry", f.Industry)
	set("Description", f.Description)
	return rec
}

// CreateLead creates a Lead record and returns the new Salesforce ID.
func CreateLead(ctx context.Context, c Client, f LeadFields) (string, error) {
	if f.Company == "" {
		return "", eris.New("sf: lead Company is required")
	}
	id, err := c.InsertOne(ctx, LeadObject, f.Record())
	if err != nil {
		return "", eris.Wrap(err, "sf: create lead")
	}
	return id, nil
}
