package responder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

const salesEmail = "ventas@proimi.test"

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	lastIn []statex.Turn
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, turns []statex.Turn, temperature float32) (string, error) {
	f.calls++
	f.lastIn = turns
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeSearcher struct {
	turns []statex.Turn
	err   error
}

func (f *fakeSearcher) Search(ctx context.Context, system string, turns []statex.Turn) ([]statex.Turn, error) {
	return f.turns, f.err
}

type sendCall struct {
	destination string
	subject     string
	body        string
}

type fakeSender struct {
	result *contractx.SendResult
	err    error
	calls  []sendCall
}

func (f *fakeSender) Send(ctx context.Context, destination, subject, body string) (*contractx.SendResult, error) {
	f.calls = append(f.calls, sendCall{destination: destination, subject: subject, body: body})
	return f.result, f.err
}

func testPrompts(t *testing.T) *promptx.PromptSet {
	t.Helper()
	prompts, err := promptx.LoadPromptSet("es", promptx.Business{
		Name: "Proimi Home", AssistantName: "Imi", ContactName: "Nicole",
		ContactEmail: salesEmail, Address: "Blvd Morazán, Tegucigalpa", Hours: "Lun-Sáb: 9:00 AM - 6:30 PM",
	})
	if err != nil {
		t.Fatalf("LoadPromptSet() error = %v", err)
	}
	return prompts
}

func completeSession(texts ...string) *statex.Session {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := statex.NewSession("whatsapp_1", now)
	for _, text := range texts {
		s.AppendHuman(text, now)
	}
	s.ContactInfo = statex.ContactInfo{Name: "Juan Perez", Email: "juan@example.com", Phone: "99887766"}
	return s
}

/* -------------------------------- Catalog -------------------------------- */

func TestCatalogQueryReturnsLatestAssistantTurn(t *testing.T) {
	t.Parallel()

	c, _ := NewCatalog(&fakeSearcher{turns: []statex.Turn{
		{Role: statex.RoleAssistant, Content: "Buscando..."},
		{Role: statex.RoleTool, Content: `{"products":[{"name":"Sofá Oslo"}]}`},
		{Role: statex.RoleAssistant, Content: "Tenemos el Sofá Oslo gris."},
		{Role: statex.RoleAssistant, Content: "  "},
	}}, testPrompts(t))

	got, ok := c.Query(context.Background(), nil)
	if !ok || got != "Tenemos el Sofá Oslo gris." {
		t.Fatalf("Query() = %q, %v", got, ok)
	}
}

func TestCatalogQueryFails(t *testing.T) {
	t.Parallel()

	cases := map[string]contractx.CatalogSearcher{
		"empty":      &fakeSearcher{},
		"tools only": &fakeSearcher{turns: []statex.Turn{{Role: statex.RoleTool, Content: "[]"}}},
		"error":      &fakeSearcher{err: errors.New("db down")},
		"nil":        nil,
	}
	for name, searcher := range cases {
		c, err := NewCatalog(searcher, testPrompts(t))
		if err != nil {
			t.Fatalf("%s: NewCatalog() error = %v", name, err)
		}
		if got, ok := c.Query(context.Background(), nil); ok {
			t.Errorf("%s: Query() = %q, want Fail", name, got)
		}
	}
}

/* ------------------------------ Notification ----------------------------- */

func TestNotifySentEchoesFields(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{result: &contractx.SendResult{DeliveryID: "msg_123"}}
	n, _ := NewNotifier(sender, testPrompts(t), "nicole@proimi.test")

	sess := completeSession("Quiero comprar esta mesa", "Juan Perez, juan@example.com, 99887766")
	outcome, msg := n.Notify(context.Background(), sess)

	if outcome != statex.NotificationSent {
		t.Fatalf("outcome = %q, want sent", outcome)
	}
	for _, want := range []string{"Juan Perez", "juan@example.com", "99887766"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("status %q does not echo %q", msg, want)
		}
	}
	if len(sender.calls) != 1 {
		t.Fatalf("send calls = %d, want exactly one", len(sender.calls))
	}
	call := sender.calls[0]
	if call.destination != "nicole@proimi.test" {
		t.Fatalf("destination = %q", call.destination)
	}
	if call.subject != "Proimi Home – Consulta de cliente: Juan Perez" {
		t.Fatalf("subject = %q", call.subject)
	}
	if !strings.Contains(call.body, "Quiero comprar esta mesa") {
		t.Fatalf("body does not carry the originating request: %q", call.body)
	}
	if strings.Contains(call.body, "PRODUCTOS MENCIONADOS") {
		t.Fatal("products block rendered without a catalog answer")
	}
}

func TestNotifyNeverReportsFalseSuccess(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		result *contractx.SendResult
		err    error
		want   statex.NotificationOutcome
	}{
		{"narrated only", &contractx.SendResult{Raw: "I'll send the email to Nicole right away"}, nil, statex.NotificationAttemptedButFailed},
		{"unknown status", &contractx.SendResult{Status: "queued"}, nil, statex.NotificationAttemptedButFailed},
		{"error status with id", &contractx.SendResult{DeliveryID: "x", Raw: "500"}, errors.New("relay 500"), statex.NotificationAttemptedButFailed},
		{"nothing returned", nil, errors.New("dial tcp: timeout"), statex.NotificationNotAttempted},
	}
	for _, tc := range cases {
		n, _ := NewNotifier(&fakeSender{result: tc.result, err: tc.err}, testPrompts(t), "nicole@proimi.test")
		outcome, msg := n.Notify(context.Background(), completeSession("Quiero comprar esta mesa"))
		if outcome != tc.want {
			t.Errorf("%s: outcome = %q, want %q", tc.name, outcome, tc.want)
		}
		if !strings.Contains(msg, salesEmail) {
			t.Errorf("%s: status %q lacks fallback contact", tc.name, msg)
		}
	}
}

func TestNotifyIncompleteContactIsNotAttempted(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{result: &contractx.SendResult{Success: true}}
	n, _ := NewNotifier(sender, testPrompts(t), "nicole@proimi.test")

	sess := completeSession("Quiero comprar")
	sess.ContactInfo.Phone = ""
	outcome, msg := n.Notify(context.Background(), sess)
	if outcome != statex.NotificationNotAttempted {
		t.Fatalf("outcome = %q", outcome)
	}
	if len(sender.calls) != 0 {
		t.Fatal("sender invoked with incomplete contact info")
	}
	if !strings.Contains(msg, salesEmail) {
		t.Fatalf("status %q lacks fallback contact", msg)
	}
}

func TestNotifyBodyCarriesCatalogAnswer(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{result: &contractx.SendResult{Status: "delivered"}}
	n, _ := NewNotifier(sender, testPrompts(t), "nicole@proimi.test")

	sess := completeSession("Mostrame comedores de madera y pasale mi pedido a Nicole")
	sess.CatalogAnswer = "Comedor Roble 6 puestos - L 18,500"
	if outcome, _ := n.Notify(context.Background(), sess); outcome != statex.NotificationSent {
		t.Fatalf("outcome = %q", outcome)
	}
	body := sender.calls[0].body
	if !strings.Contains(body, "PRODUCTOS MENCIONADOS") || !strings.Contains(body, "Comedor Roble") {
		t.Fatalf("body lacks products block: %q", body)
	}
}

func TestOriginatingRequest(t *testing.T) {
	t.Parallel()

	keywords := []string{"comprar", "quiero", "precio"}
	cases := []struct {
		name  string
		turns []string
		want  string
	}{
		{"keyword turn wins", []string{"Hola", "Quiero comprar esta mesa", "Juan Perez, juan@example.com, 99887766"}, "Quiero comprar esta mesa"},
		{"first substantive", []string{"Hola", "Juan Perez, juan@example.com, 99887766"}, "Hola"},
		{"only contact", []string{"juan@example.com 99887766"}, "juan@example.com 99887766"},
	}
	for _, tc := range cases {
		if got := OriginatingRequest(completeSession(tc.turns...), keywords); got != tc.want {
			t.Errorf("%s: OriginatingRequest() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

/* --------------------------- Direct / Combine ---------------------------- */

func TestDirectFallsBackToGreeting(t *testing.T) {
	t.Parallel()

	d, _ := NewDirect(&fakeCompleter{err: errors.New("503")}, testPrompts(t))
	got := d.Respond(context.Background(), []statex.Turn{{Role: statex.RoleHuman, Content: "Hola"}})
	if !strings.Contains(got, "Imi") || !strings.Contains(got, "Proimi Home") {
		t.Fatalf("Respond() = %q, want greeting fallback", got)
	}

	d, _ = NewDirect(&fakeCompleter{reply: "¡Hola! ¿Qué estilo buscás?"}, testPrompts(t))
	if got := d.Respond(context.Background(), nil); got != "¡Hola! ¿Qué estilo buscás?" {
		t.Fatalf("Respond() = %q", got)
	}
}

func TestCombineConcatenatesOnFailure(t *testing.T) {
	t.Parallel()

	c, _ := NewCombiner(&fakeCompleter{err: errors.New("timeout")}, testPrompts(t))
	got := c.Combine(context.Background(), "Sofá Oslo", "Enviado a Nicole", statex.NotificationSent)
	if got != "Sofá Oslo\n\nEnviado a Nicole" {
		t.Fatalf("Combine() = %q", got)
	}

	if got := c.Combine(context.Background(), "", "", ""); !strings.Contains(got, "no pude procesar") {
		t.Fatalf("Combine() with no partials = %q", got)
	}
}

func TestCombineKeepsFallbackContactOnFailedNotification(t *testing.T) {
	t.Parallel()

	composer := &fakeCompleter{reply: "¡Listo! Nicole te escribirá pronto."}
	c, _ := NewCombiner(composer, testPrompts(t))

	status := "No pude enviar el correo. Escribile a Nicole: " + salesEmail
	got := c.Combine(context.Background(), "Sofá Oslo", status, statex.NotificationAttemptedButFailed)
	if !strings.Contains(got, salesEmail) {
		t.Fatalf("merged reply dropped fallback contact: %q", got)
	}
	if composer.calls != 1 {
		t.Fatalf("composer calls = %d", composer.calls)
	}
}

func TestRecoveryIsEscalation(t *testing.T) {
	t.Parallel()

	r, _ := NewRecovery(testPrompts(t))
	got := r.Respond()
	if !strings.Contains(got, "Nicole") || !strings.Contains(got, "Blvd Morazán") {
		t.Fatalf("Respond() = %q", got)
	}
}
