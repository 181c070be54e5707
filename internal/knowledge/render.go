// internal/knowledge/render.go
package knowledge

import (
	"strings"
)

const (
	defaultAddressType = "Main"
	defaultCategory    = "Other"
)

// Render flattens doc into prompt text. It never fails: missing fields
// render as empty values and a nil document renders like an empty one.
//
// Products are grouped by consecutive runs of the same category, so a
// category that reappears after a different one gets its header again.
func Render(doc *Document) string {
	if doc == nil {
		doc = &Document{}
	}
	info := doc.BusinessInfo

	lines := []string{
		"NAME: " + info.Name.String(),
		"ABOUT: " + info.Description.String(),
		"HOURS: " + info.OperatingHours["daily"].String(),
	}

	if len(info.OfficialAddresses) > 0 {
		lines = append(lines, "LOCATIONS:")
		for _, addr := range info.OfficialAddresses {
			kind := addr.AddressType.String()
			if kind == "" {
				kind = defaultAddressType
			}
			lines = append(lines, "- "+kind+": "+addr.Location.String())
		}
	}

	if len(doc.Products) > 0 {
		lines = append(lines, "\nMENU & PRICES:")
		current := ""
		for i, p := range doc.Products {
			category := p.Category.String()
			if category == "" {
				category = defaultCategory
			}
			if i == 0 || category != current {
				current = category
				lines = append(lines, "\n"+strings.ToUpper(category))
			}
			lines = append(lines, productLine(p))
		}
	}

	return strings.Join(lines, "\n")
}

func productLine(p Product) string {
	var b strings.Builder
	b.WriteString("• ")
	b.WriteString(p.Name.String())
	b.WriteString(" — ")
	b.WriteString(p.Price.String())
	if p.Description != "" {
		b.WriteString(" (")
		b.WriteString(p.Description.String())
		b.WriteString(")")
	}
	if len(p.Sizes) > 0 {
		labels := make([]string, len(p.Sizes))
		for i, s := range p.Sizes {
			labels[i] = s.Label
		}
		b.WriteString(" Sizes: ")
		b.WriteString(strings.Join(labels, ", "))
	}
	return b.String()
}
