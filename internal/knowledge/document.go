// internal/knowledge/document.go

// Package knowledge loads the shop's catalog and renders it into the flat
// text block the realtime model is instructed with.
package knowledge

import (
	"bytes"
	"encoding/json"
)

// Document is the structured knowledge base. It is never mutated after
// loading and is shared read-only by every session of the process.
type Document struct {
	BusinessInfo BusinessInfo `json:"business_info"`
	Products     Products     `json:"products"`
}

type BusinessInfo struct {
	Name              Text            `json:"business_name"`
	Description       Text            `json:"business_description"`
	OperatingHours    Hours     `json:"operating_hours"`
	OfficialAddresses Addresses `json:"official_addresses"`
}

// UnmarshalJSON accepts both the business_name/business_description keys
// and the shorter name/description ones. A business_info that is not an
// object decodes as empty.
func (b *BusinessInfo) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		*b = BusinessInfo{}
		return nil
	}
	type plain BusinessInfo
	var aux struct {
		plain
		ShortName        *Text `json:"name"`
		ShortDescription *Text `json:"description"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = BusinessInfo(aux.plain)
	if b.Name == "" && aux.ShortName != nil {
		b.Name = *aux.ShortName
	}
	if b.Description == "" && aux.ShortDescription != nil {
		b.Description = *aux.ShortDescription
	}
	return nil
}

type Address struct {
	AddressType Text `json:"address_type"`
	Location    Text `json:"location"`
}

type Product struct {
	Name        Text  `json:"name"`
	Category    Text  `json:"category"`
	Price       Text  `json:"price"`
	Description Text  `json:"description"`
	Sizes       Sizes `json:"sizes"`
}

// Hours maps a period such as "daily" to its opening hours. Anything but
// an object decodes as no hours.
type Hours map[string]Text

func (h *Hours) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		*h = nil
		return nil
	}
	var m map[string]Text
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*h = m
	return nil
}

// Addresses, Products and Sizes keep the entries that decode and drop the
// rest, so one bad entry never costs the whole list.
type Addresses []Address

func (a *Addresses) UnmarshalJSON(data []byte) error {
	*a = decodeEntries[Address](data, isObject)
	return nil
}

type Products []Product

func (p *Products) UnmarshalJSON(data []byte) error {
	*p = decodeEntries[Product](data, isObject)
	return nil
}

type Sizes []Size

func (s *Sizes) UnmarshalJSON(data []byte) error {
	*s = decodeEntries[Size](data, func([]byte) bool { return true })
	return nil
}

// decodeEntries decodes each element of a JSON array that passes accept.
// A value that is not an array yields nil.
func decodeEntries[T any](data []byte, accept func([]byte) bool) []T {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		if !accept(r) {
			continue
		}
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

// Size is one entry of a product's sizes list. The source data holds
// either plain labels or objects carrying a size field next to others.
type Size struct {
	Label string
}

func (s *Size) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Size Text `json:"size"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		s.Label = string(obj.Size)
		return nil
	}
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	s.Label = string(t)
	return nil
}

// Text is a scalar rendered verbatim. Numbers keep their JSON literal so a
// price of 1200 renders as "1200", null renders empty and nested values
// are dropped rather than failing the whole document.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 'n', '{', '[':
		*t = ""
	default:
		// numbers and booleans
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }
