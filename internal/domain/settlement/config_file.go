package settlement

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
)

// configDoc mirrors Config with the VAT rate as text so it keeps its exact decimal form.
type configDoc struct {
	ChargesVAT         *bool  `yaml:"charges_vat"`
	VATPercent         string `yaml:"vat_percent"`
	DefaultPaymentDays *int   `yaml:"default_payment_days"`
	RequiresEInvoice   bool   `yaml:"requires_e_invoice"`
}

// ParseConfig decodes a tenant configuration document. Omitted keys keep their defaults:
//
//	charges_vat: true
//	vat_percent: "19.00"
//	default_payment_days: 5
//	requires_e_invoice: false
func ParseConfig(r io.Reader, tenantID id.ID) (Config, error) {
	var doc configDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Config{}, fmt.Errorf("decode settlement config: %w", err)
	}

	cfg := DefaultConfig(tenantID)
	if doc.ChargesVAT != nil {
		cfg.ChargesVAT = *doc.ChargesVAT
	}
	if doc.VATPercent != "" {
		pct, err := types.NewMoneyFromString(doc.VATPercent)
		if err != nil {
			return Config{}, fmt.Errorf("vat_percent: %w", err)
		}
		cfg.VATPercent = pct
	}
	if doc.DefaultPaymentDays != nil {
		cfg.DefaultPaymentDays = *doc.DefaultPaymentDays
	}
	cfg.RequiresEInvoice = doc.RequiresEInvoice
	return cfg, nil
}
