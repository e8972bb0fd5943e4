package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-builder/internal/model"
	"github.com/sells-group/lead-builder/internal/store"
)

var (
	leadsLimit  int
	leadsFormat string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List leads held in the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cache, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck

		if err := cache.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		leads, err := store.NewLeadCache(cache).List(ctx, leadsLimit)
		if err != nil {
			return err
		}
		return writeLeads(cmd.OutOrStdout(), leads, leadsFormat)
	},
}

func init() {
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 0, "show only the most recent N leads (0 = all)")
	leadsCmd.Flags().StringVar(&leadsFormat, "format", "json", "output format: json (one lead per line) or yaml")
	rootCmd.AddCommand(leadsCmd)
}

// leadYAML flattens a cached lead for YAML output.
type leadYAML struct {
	ID               string `yaml:"id"`
	WebsiteURL       string `yaml:"website_url"`
	CompanyName      string `yaml:"company_name"`
	ContactEmail     string `yaml:"contact_email,omitempty"`
	PhoneNumber      string `yaml:"phone_number,omitempty"`
	Market           string `yaml:"market"`
	Description      string `yaml:"description,omitempty"`
	ExtractionMethod string `yaml:"extraction_method"`
	DateAdded        string `yaml:"date_added,omitempty"`
	SavedAt          int64  `yaml:"saved_at"`
}

func writeLeads(w io.Writer, leads []model.CachedLead, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		for _, l := range leads {
			if err := enc.Encode(l); err != nil {
				return eris.Wrap(err, "encode lead")
			}
		}
		return nil
	case "yaml":
		out := make([]leadYAML, 0, len(leads))
		for _, l := range leads {
			y := leadYAML{
				ID:               l.ID,
				WebsiteURL:       l.WebsiteURL,
				CompanyName:      l.CompanyName,
				ContactEmail:     l.ContactEmail,
				PhoneNumber:      l.PhoneNumber,
				Market:           string(l.Market),
				Description:      l.Description,
				ExtractionMethod: string(l.ExtractionMethod),
				SavedAt:          l.SavedAt,
			}
			if !l.DateAdded.IsZero() {
				y.DateAdded = l.DateAdded.UTC().Format(time.RFC3339)
			}
			out = append(out, y)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "encode leads")
		}
		return enc.Close()
	default:
		return eris.Errorf("unsupported format %q (want json or yaml)", format)
	}
}
