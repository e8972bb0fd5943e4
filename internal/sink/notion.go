package sink

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-builder/internal/model"
	"github.com/sells-group/lead-builder/pkg/notion"
)

// NotionForwarder creates one page per lead in a Notion database.
type NotionForwarder struct {
	client notion.Client
	dbID   string
}

// NewNotionForwarder creates a forwarder writing to database dbID.
func NewNotionForwarder(client notion.Client, dbID string) *NotionForwarder {
	return &NotionForwarder{client: client, dbID: dbID}
}

// Destination returns the database ID.
func (n *NotionForwarder) Destination() string {
	return n.dbID
}

// Forward creates the lead's page.
func (n *NotionForwarder) Forward(ctx context.Context, lead model.Lead) error {
	_, err := n.client.CreatePage(ctx, LeadPage(n.dbID, lead))
	if err == nil {
		return nil
	}
	err = eris.Wrap(err, "sink: create notion page")
	if code := notion.StatusCode(err); code != 0 {
		return model.NewSinkError(model.ClassifyStatus(code), code, err)
	}
	return model.NewSinkError(model.ErrKindTransport, 0, err)
}

// LeadPage builds the page-create request for lead. Empty fields are left
// out of the property map.
func LeadPage(dbID string, lead model.Lead) *notionapi.PageCreateRequest {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: lead.CompanyName}}},
		},
		"Website": notionapi.URLProperty{URL: lead.WebsiteURL},
		"Market":  notionapi.SelectProperty{Select: notionapi.Option{Name: string(lead.Market.OrUnknown())}},
		"Method":  notionapi.SelectProperty{Select: notionapi.Option{Name: string(lead.ExtractionMethod)}},
	}
	if lead.ContactEmail != "" {
		props["Email"] = notionapi.EmailProperty{Email: lead.ContactEmail}
	}
	if lead.PhoneNumber != "" {
		props["Phone"] = notionapi.PhoneNumberProperty{PhoneNumber: lead.PhoneNumber}
	}
	if lead.Description != "" {
		props["Description"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: lead.Description}}},
		}
	}
	if !lead.DateAdded.IsZero() {
		added := notionapi.Date(lead.DateAdded.UTC().Truncate(time.Second))
		props["Date Added"] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &added}}
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	}
}
