package collector

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

const extractionTurns = 5

// Collector fills the contact record of a session from free text. Every step
// of the cascade only fills fields that are still empty.
type Collector struct {
	extractor contractx.Completer
	prompts   *promptx.PromptSet
}

func New(extractor contractx.Completer, prompts *promptx.PromptSet) (*Collector, error) {
	if extractor == nil {
		return nil, errors.New("collector extractor is required")
	}
	if prompts == nil {
		return nil, errors.New("collector prompts are required")
	}
	return &Collector{extractor: extractor, prompts: prompts}, nil
}

// Collect returns the updated contact record and the fields still missing in
// canonical order. The session is not modified.
func (c *Collector) Collect(ctx context.Context, sess *statex.Session) (statex.ContactInfo, []statex.ContactField) {
	if sess == nil {
		return statex.ContactInfo{}, statex.ContactFields
	}
	info := sess.ContactInfo

	latest, ok := sess.LatestHuman()
	if ok {
		ExtractFromText(latest.Content, &info)
	}

	if !info.Complete() {
		c.extractWithModel(ctx, sess.LastTurns(extractionTurns), &info)
	}

	missing := info.Missing()
	logx.Ctx(ctx).Debug().
		Bool("complete", len(missing) == 0).
		Int("missing", len(missing)).
		Msg("contact info collected")
	return info, missing
}

// ExtractFromText runs the pattern based steps of the cascade over text.
func ExtractFromText(text string, info *statex.ContactInfo) {
	text = strings.TrimSpace(text)
	if text == "" || info == nil {
		return
	}

	email, at := findEmail(text)
	rest := text
	if email != "" {
		info.Fill(statex.FieldEmail, email)
		rest = text[:at] + " " + text[at+len(email):]
	}
	info.Fill(statex.FieldPhone, findPhone(rest))

	if email != "" && !info.Has(statex.FieldName) {
		if candidate := stripSeparators(text[:at]); plausibleName(candidate) {
			info.Fill(statex.FieldName, candidate)
		}
	}

	if strings.Contains(text, ",") && !info.Complete() {
		for _, segment := range strings.Split(text, ",") {
			segment = strings.TrimSpace(segment)
			switch {
			case segment == "":
			case strings.Contains(segment, "@"):
				if e, _ := findEmail(segment); e != "" {
					info.Fill(statex.FieldEmail, e)
				}
			case isPhoneSegment(segment):
				info.Fill(statex.FieldPhone, segment)
			case !info.Has(statex.FieldName) && plausibleName(segment):
				info.Fill(statex.FieldName, segment)
			}
		}
	}
}

func (c *Collector) extractWithModel(ctx context.Context, turns []statex.Turn, info *statex.ContactInfo) {
	instruction, err := c.prompts.Render(c.prompts.Extraction, map[string]any{
		"conversation": transcript(turns),
	})
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("render extraction instruction failed")
		return
	}
	system, err := c.prompts.Render(c.prompts.Persona, nil)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("render persona failed")
		return
	}

	raw, err := c.extractor.Complete(ctx, system, []statex.Turn{
		{Role: statex.RoleHuman, Content: instruction},
	}, contractx.TemperatureDeterministic)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("contact extraction failed, keeping pattern results")
		return
	}
	ParseExtraction(raw, info)
}

// ParseExtraction reads the NAME/EMAIL/PHONE lines of an extraction answer.
func ParseExtraction(raw string, info *statex.ContactInfo) {
	if info == nil {
		return
	}
	for _, line := range strings.Split(raw, "\n") {
		label, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		label = strings.ToUpper(strings.Trim(strings.TrimSpace(label), "-*• "))
		value = strings.Trim(strings.TrimSpace(value), "*\"' ")
		if value == "" || strings.EqualFold(value, "missing") {
			continue
		}
		switch label {
		case "NAME":
			if plausibleName(value) {
				info.Fill(statex.FieldName, value)
			}
		case "EMAIL":
			if strings.Contains(value, "@") {
				info.Fill(statex.FieldEmail, value)
			}
		case "PHONE":
			if len(value) >= minPhoneLen {
				info.Fill(statex.FieldPhone, value)
			}
		}
	}
}

func transcript(turns []statex.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Role != statex.RoleHuman && t.Role != statex.RoleAssistant {
			continue
		}
		if content := strings.TrimSpace(t.Content); content != "" {
			lines = append(lines, string(t.Role)+": "+content)
		}
	}
	return strings.Join(lines, "\n")
}
