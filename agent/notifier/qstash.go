package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	qstashx "github.com/tanpawarit/chative-concierge/pkg/qstash"
)

// DeduplicationHeader makes QStash drop a second publish of the same attempt.
const DeduplicationHeader = "Upstash-Deduplication-Id"

// Publisher is the part of the QStash client used to hand mail to the relay.
type Publisher interface {
	Publish(ctx context.Context, destination string, payload any, headers map[string]string) (*qstashx.PublishResult, error)
}

type Config struct {
	Recipient string `split_words:"true" required:"true"`
	RelayURL  string `split_words:"true" required:"true"`
}

// Mail is the payload the relay endpoint turns into an email.
type Mail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// QStashSender publishes notifications to a mail relay through QStash. A
// delivery id is only reported when the broker acknowledged the message.
type QStashSender struct {
	publisher Publisher
	relayURL  string
}

func NewQStashSender(publisher Publisher, relayURL string) (*QStashSender, error) {
	if publisher == nil {
		return nil, errors.New("qstash publisher is required")
	}
	relayURL = strings.TrimSpace(relayURL)
	if relayURL == "" {
		return nil, errors.New("relay url is required")
	}
	return &QStashSender{publisher: publisher, relayURL: relayURL}, nil
}

func (s *QStashSender) Send(ctx context.Context, destination, subject, body string) (*contractx.SendResult, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("%w: destination is empty", contractx.ErrValidation)
	}

	var headers map[string]string
	if key := contractx.IdempotencyKey(ctx); key != "" {
		headers = map[string]string{DeduplicationHeader: key}
	}

	res, err := s.publisher.Publish(ctx, s.relayURL, Mail{To: destination, Subject: subject, Body: body}, headers)
	if res == nil {
		if err == nil {
			err = errors.New("qstash returned no result")
		}
		return nil, fmt.Errorf("%w: %v", contractx.ErrCapabilityUnavailable, err)
	}

	out := &contractx.SendResult{Raw: res.Body}
	if err != nil {
		return out, err
	}
	out.DeliveryID = strings.TrimSpace(res.MessageID)
	return out, nil
}

var _ contractx.NotificationSender = (*QStashSender)(nil)
