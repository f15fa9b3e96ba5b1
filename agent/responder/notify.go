package responder

import (
	"context"
	"errors"
	"strings"

	"github.com/tanpawarit/chative-concierge/agent/collector"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

const maxProductsInBody = 800

// Notifier forwards a customer request to the fixed sales recipient.
type Notifier struct {
	sender    contractx.NotificationSender
	prompts   *promptx.PromptSet
	recipient string
}

// NewNotifier accepts a nil sender; every attempt is then NotAttempted.
func NewNotifier(sender contractx.NotificationSender, prompts *promptx.PromptSet, recipient string) (*Notifier, error) {
	if prompts == nil {
		return nil, errors.New("notifier prompts are required")
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, errors.New("notification recipient is required")
	}
	return &Notifier{sender: sender, prompts: prompts, recipient: recipient}, nil
}

// Notify attempts delivery once and classifies the outcome strictly from the
// sender's structured result. Only an explicit confirmation is Sent.
func (n *Notifier) Notify(ctx context.Context, sess *statex.Session) (statex.NotificationOutcome, string) {
	if sess == nil || !sess.ContactInfo.Complete() {
		logx.Ctx(ctx).Error().Err(contractx.ErrValidation).Msg("notification requested with incomplete contact info")
		return statex.NotificationNotAttempted, n.statusMessage(statex.NotificationNotAttempted, statex.ContactInfo{})
	}
	if n.sender == nil {
		logx.Ctx(ctx).Warn().Err(contractx.ErrCapabilityUnavailable).Msg("notification sender is not configured")
		return statex.NotificationNotAttempted, n.statusMessage(statex.NotificationNotAttempted, sess.ContactInfo)
	}

	subject, body, err := n.compose(sess)
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("compose notification failed")
		return statex.NotificationNotAttempted, n.statusMessage(statex.NotificationNotAttempted, sess.ContactInfo)
	}

	ctx = contractx.WithIdempotencyKey(ctx, sess.NotifyIdempotencyKey())
	res, err := n.sender.Send(ctx, n.recipient, subject, body)
	outcome := Classify(res, err)

	ev := logx.Ctx(ctx).Info()
	if outcome != statex.NotificationSent {
		ev = logx.Ctx(ctx).Warn().Err(err)
	}
	if res != nil {
		ev = ev.Str("delivery_id", res.DeliveryID).Str("status", res.Status)
	}
	ev.Str("outcome", string(outcome)).Msg("notification attempted")

	return outcome, n.statusMessage(outcome, sess.ContactInfo)
}

// Classify maps a send result onto an outcome. A nil result means nothing was
// handed over; a result without explicit confirmation is a failure.
func Classify(res *contractx.SendResult, err error) statex.NotificationOutcome {
	switch {
	case res == nil:
		return statex.NotificationNotAttempted
	case err == nil && res.Confirmed():
		return statex.NotificationSent
	default:
		return statex.NotificationAttemptedButFailed
	}
}

func (n *Notifier) compose(sess *statex.Session) (string, string, error) {
	info := sess.ContactInfo
	vars := map[string]any{
		"customer_name":    info.Name,
		"customer_email":   info.Email,
		"customer_phone":   info.Phone,
		"customer_request": OriginatingRequest(sess, n.prompts.Messages.IntentKeywords),
		"channel_name":     n.prompts.Messages.ChannelName,
		"products_block":   "",
	}
	if answer := strings.TrimSpace(sess.CatalogAnswer); answer != "" && !sess.RetryNeeded {
		block, err := n.prompts.Render(n.prompts.Messages.NotifyProducts, map[string]any{
			"products": truncate(answer, maxProductsInBody),
		})
		if err != nil {
			return "", "", err
		}
		vars["products_block"] = block + "\n\n"
	}

	subject, err := n.prompts.Render(n.prompts.Messages.NotifySubject, vars)
	if err != nil {
		return "", "", err
	}
	body, err := n.prompts.Render(n.prompts.Messages.NotifyBody, vars)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func (n *Notifier) statusMessage(outcome statex.NotificationOutcome, info statex.ContactInfo) string {
	name := info.Name
	if name == "" {
		name = n.prompts.Messages.UnknownName
	}
	vars := map[string]any{
		"customer_name":  name,
		"customer_email": info.Email,
		"customer_phone": info.Phone,
	}

	tpl := n.prompts.Messages.NotifyUnavailable
	switch outcome {
	case statex.NotificationSent:
		tpl = n.prompts.Messages.NotifySent
	case statex.NotificationAttemptedButFailed:
		tpl = n.prompts.Messages.NotifyFailed
	}
	out, err := n.prompts.Render(tpl, vars)
	if err != nil {
		// never lose the fallback contact path
		return n.prompts.Business.ContactName + ": " + n.prompts.Business.ContactEmail + ", " + n.prompts.Business.Address
	}
	return out
}

// OriginatingRequest picks the turn that best describes what the customer asked for.
func OriginatingRequest(sess *statex.Session, keywords []string) string {
	humans := sess.HumanTurns()
	if len(humans) == 0 {
		return ""
	}
	known := []string{sess.ContactInfo.Name}

	var firstSubstantive string
	for _, t := range humans {
		content := strings.TrimSpace(t.Content)
		if content == "" || collector.ContactOnly(content, known...) {
			continue
		}
		if hasKeyword(content, keywords) {
			return content
		}
		if firstSubstantive == "" {
			firstSubstantive = content
		}
	}
	if firstSubstantive != "" {
		return firstSubstantive
	}
	return strings.TrimSpace(humans[len(humans)-1].Content)
}

func hasKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" && strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
