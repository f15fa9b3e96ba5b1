package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/slongfield/pyfmt"
	"github.com/spf13/viper"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

//go:embed template
var templateFS embed.FS

const DefaultLocale = "es"

// Business is the deployment profile substituted into every template.
type Business struct {
	Name          string `split_words:"true" default:"Proimi Home"`
	AssistantName string `split_words:"true" default:"Imi"`
	ContactName   string `split_words:"true" default:"Nicole"`
	ContactEmail  string `split_words:"true" required:"true"`
	Address       string `split_words:"true" default:"Blvd Morazán, Tegucigalpa"`
	Hours         string `split_words:"true" default:"Lun-Sáb: 9:00 AM - 6:30 PM"`
}

func (b Business) vars() map[string]any {
	return map[string]any{
		"business_name":  b.Name,
		"assistant_name": b.AssistantName,
		"contact_name":   b.ContactName,
		"contact_email":  b.ContactEmail,
		"address":        b.Address,
		"hours":          b.Hours,
	}
}

// Messages holds the fixed user-facing strings of one locale.
type Messages struct {
	GreetingFallback   string            `mapstructure:"greeting_fallback"`
	CatalogUnavailable string            `mapstructure:"catalog_unavailable"`
	Escalation         string            `mapstructure:"escalation"`
	CombineFallback    string            `mapstructure:"combine_fallback"`
	FatalError         string            `mapstructure:"fatal_error"`
	AskContact         string            `mapstructure:"ask_contact"`
	FieldLabels        map[string]string `mapstructure:"field_labels"`
	ListSeparator      string            `mapstructure:"list_separator"`
	ListLastSeparator  string            `mapstructure:"list_last_separator"`
	UnknownName        string            `mapstructure:"unknown_name"`
	ChannelName        string            `mapstructure:"channel_name"`
	NotifySubject      string            `mapstructure:"notify_subject"`
	NotifyBody         string            `mapstructure:"notify_body"`
	NotifyProducts     string            `mapstructure:"notify_products"`
	NotifySent         string            `mapstructure:"notify_sent"`
	NotifyFailed       string            `mapstructure:"notify_failed"`
	NotifyUnavailable  string            `mapstructure:"notify_unavailable"`
	IntentKeywords     []string          `mapstructure:"intent_keywords"`
	ConfirmKeywords    []string          `mapstructure:"confirm_keywords"`
	DeclineKeywords    []string          `mapstructure:"decline_keywords"`
}

// PromptSet holds the templates of one locale bound to a business profile.
type PromptSet struct {
	Locale     string
	Business   Business
	Persona    string
	Routing    string
	Extraction string
	Combine    string
	Catalog    string
	Messages   Messages
}

// LoadPromptSet reads the embedded templates of locale and checks that every
// template renders with the business profile.
func LoadPromptSet(locale string, business Business) (*PromptSet, error) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		locale = DefaultLocale
	}

	read := func(name string) (string, error) {
		raw, err := templateFS.ReadFile(path.Join("template", locale, name))
		if err != nil {
			return "", fmt.Errorf("%w: %s/%s: %v", contractx.ErrPromptMissing, locale, name, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	set := &PromptSet{Locale: locale, Business: business}
	for name, dst := range map[string]*string{
		"persona.txt":    &set.Persona,
		"routing.txt":    &set.Routing,
		"extraction.txt": &set.Extraction,
		"combine.txt":    &set.Combine,
		"catalog.txt":    &set.Catalog,
	} {
		content, err := read(name)
		if err != nil {
			return nil, err
		}
		*dst = content
	}

	rawMessages, err := templateFS.ReadFile(path.Join("template", locale, "messages.yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s/messages.yaml: %v", contractx.ErrPromptMissing, locale, err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(rawMessages)); err != nil {
		return nil, fmt.Errorf("parse %s messages: %w", locale, err)
	}
	if err := v.Unmarshal(&set.Messages); err != nil {
		return nil, fmt.Errorf("decode %s messages: %w", locale, err)
	}

	if err := set.validate(); err != nil {
		return nil, err
	}
	return set, nil
}

func (p *PromptSet) validate() error {
	required := map[string]string{
		"greeting_fallback":   p.Messages.GreetingFallback,
		"catalog_unavailable": p.Messages.CatalogUnavailable,
		"escalation":          p.Messages.Escalation,
		"combine_fallback":    p.Messages.CombineFallback,
		"fatal_error":         p.Messages.FatalError,
		"ask_contact":         p.Messages.AskContact,
		"notify_subject":      p.Messages.NotifySubject,
		"notify_body":         p.Messages.NotifyBody,
		"notify_sent":         p.Messages.NotifySent,
		"notify_failed":       p.Messages.NotifyFailed,
		"notify_unavailable":  p.Messages.NotifyUnavailable,
	}
	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%w: %s/%s", contractx.ErrPromptMissing, p.Locale, key)
		}
	}
	if len(p.Messages.ConfirmKeywords) == 0 {
		return fmt.Errorf("%w: %s/confirm_keywords", contractx.ErrPromptMissing, p.Locale)
	}
	for _, f := range statex.ContactFields {
		if strings.TrimSpace(p.Messages.FieldLabels[string(f)]) == "" {
			return fmt.Errorf("%w: %s/field_labels.%s", contractx.ErrPromptMissing, p.Locale, f)
		}
	}
	// business-only templates must render now so a typo fails at startup
	for name, tpl := range map[string]string{
		"persona":     p.Persona,
		"catalog":     p.Catalog,
		"escalation":  p.Messages.Escalation,
		"fatal_error": p.Messages.FatalError,
		"greeting":    p.Messages.GreetingFallback,
	} {
		if _, err := p.Render(tpl, nil); err != nil {
			return fmt.Errorf("%w: %s/%s: %v", contractx.ErrPromptMissing, p.Locale, name, err)
		}
	}
	return nil
}

// Render formats tpl with the business profile plus vars. vars win on conflict.
func (p *PromptSet) Render(tpl string, vars map[string]any) (string, error) {
	merged := p.Business.vars()
	for k, v := range vars {
		merged[k] = v
	}
	out, err := pyfmt.Fmt(tpl, merged)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Confirms reports whether text accepts an offer: it holds a confirm keyword
// and no decline keyword. Keywords match whole words only.
func (p *PromptSet) Confirms(text string) bool {
	words := " " + strings.Join(strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ") + " "
	contains := func(keywords []string) bool {
		for _, k := range keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" && strings.Contains(words, " "+k+" ") {
				return true
			}
		}
		return false
	}
	return contains(p.Messages.ConfirmKeywords) && !contains(p.Messages.DeclineKeywords)
}

// FieldList joins the localized labels of fields, e.g. "a, b y c".
func (p *PromptSet) FieldList(fields []statex.ContactField) string {
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		label := p.Messages.FieldLabels[string(f)]
		if label == "" {
			label = string(f)
		}
		labels = append(labels, label)
	}
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	default:
		return strings.Join(labels[:len(labels)-1], p.Messages.ListSeparator) + p.Messages.ListLastSeparator + labels[len(labels)-1]
	}
}

// AskFor renders the question asking for exactly the missing contact fields.
func (p *PromptSet) AskFor(missing []statex.ContactField) string {
	fields := p.FieldList(missing)
	out, err := p.Render(p.Messages.AskContact, map[string]any{"fields": fields})
	if err != nil {
		return fields + "?"
	}
	return out
}

// FatalError is the outermost apology with the physical-location fallback.
func (p *PromptSet) FatalError() string {
	out, err := p.Render(p.Messages.FatalError, nil)
	if err != nil {
		return p.Business.Address
	}
	return out
}
