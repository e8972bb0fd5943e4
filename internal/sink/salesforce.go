package sink

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-builder/internal/model"
	"github.com/sells-group/lead-builder/pkg/salesforce"
)

// SalesforceForwarder inserts each lead as a Salesforce Lead record.
type SalesforceForwarder struct {
	client salesforce.Client
	org    string
}

// NewSalesforceForwarder creates a forwarder for the org identified by org
// (typically the login URL).
func NewSalesforceForwarder(client salesforce.Client, org string) *SalesforceForwarder {
	return &SalesforceForwarder{client: client, org: org}
}

// Destination returns the org identifier.
func (s *SalesforceForwarder) Destination() string {
	return s.org
}

// Forward creates the Lead record.
func (s *SalesforceForwarder) Forward(ctx context.Context, lead model.Lead) error {
	_, err := salesforce.CreateLead(ctx, s.client, salesforce.LeadFields{
		Company:     lead.CompanyName,
		Website:     lead.WebsiteURL,
		Email:       lead.ContactEmail,
		Phone:       lead.PhoneNumber,
		Industry:    string(lead.Market.OrUnknown()),
		Description: lead.Description,
	})
	if err != nil {
		return model.NewSinkError(model.ErrKindTransport, 0, eris.Wrap(err, "sink: forward to salesforce"))
	}
	return nil
}
