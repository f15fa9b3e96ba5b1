package state

import "strings"

type ContactField string

const (
	FieldName  ContactField = "name"
	FieldEmail ContactField = "email"
	FieldPhone ContactField = "phone"
)

// ContactFields is the canonical order used when reporting missing fields.
var ContactFields = []ContactField{FieldName, FieldEmail, FieldPhone}

type ContactInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c ContactInfo) Get(field ContactField) string {
	switch field {
	case FieldName:
		return c.Name
	case FieldEmail:
		return c.Email
	case FieldPhone:
		return c.Phone
	default:
		return ""
	}
}

func (c ContactInfo) Has(field ContactField) bool {
	return strings.TrimSpace(c.Get(field)) != ""
}

// Fill sets field only when it is still empty. It reports whether the record changed.
func (c *ContactInfo) Fill(field ContactField, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || c.Has(field) {
		return false
	}
	switch field {
	case FieldName:
		c.Name = value
	case FieldEmail:
		c.Email = value
	case FieldPhone:
		c.Phone = value
	default:
		return false
	}
	return true
}

func (c ContactInfo) Missing() []ContactField {
	var missing []ContactField
	for _, f := range ContactFields {
		if !c.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func (c ContactInfo) Complete() bool {
	return len(c.Missing()) == 0
}
