package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	llmx "github.com/tanpawarit/chative-concierge/agent/llm"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

const testRecipient = "nicole@proimi.test"

type scriptedCompleter struct {
	mu    sync.Mutex
	calls int
	fn    func(system string, turns []statex.Turn) (string, error)
}

func (f *scriptedCompleter) Complete(ctx context.Context, system string, turns []statex.Turn, temperature float32) (string, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return "", errors.New("no script")
	}
	return fn(system, turns)
}

func (f *scriptedCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func reply(text string) func(string, []statex.Turn) (string, error) {
	return func(string, []statex.Turn) (string, error) { return text, nil }
}

// routeByMessage answers the routing instruction by looking up the quoted
// customer message. Unknown messages get fallback.
func routeByMessage(routes map[string]string, fallback string) func(string, []statex.Turn) (string, error) {
	return func(_ string, turns []statex.Turn) (string, error) {
		instruction := turns[len(turns)-1].Content
		for msg, route := range routes {
			if strings.Contains(instruction, `Mensaje del cliente: "`+msg+`"`) {
				return route, nil
			}
		}
		return fallback, nil
	}
}

// echoCombine greets on direct turns and returns the combine instruction as is,
// which keeps every partial verbatim.
func echoCombine(_ string, turns []statex.Turn) (string, error) {
	last := turns[len(turns)-1].Content
	if strings.HasPrefix(last, "Combiná") {
		return "COMBINED\n" + last, nil
	}
	return "¡Hola! Soy Imi de Proimi Home. ¿Qué estás buscando?", nil
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.events, ",")
}

type fakeSearcher struct {
	log   *eventLog
	turns []statex.Turn
	err   error
	calls int
}

func (f *fakeSearcher) Search(ctx context.Context, system string, turns []statex.Turn) ([]statex.Turn, error) {
	f.calls++
	f.log.add("search")
	if f.err != nil {
		return nil, f.err
	}
	return f.turns, nil
}

type sentMail struct {
	to, subject, body string
}

type spySender struct {
	log    *eventLog
	result *contractx.SendResult
	err    error
	onSend func(ctx context.Context)
	mails  []sentMail
}

func (s *spySender) Send(ctx context.Context, destination, subject, body string) (*contractx.SendResult, error) {
	s.log.add("send")
	if s.onSend != nil {
		s.onSend(ctx)
	}
	s.mails = append(s.mails, sentMail{to: destination, subject: subject, body: body})
	return s.result, s.err
}

type countingStore struct {
	*statex.MemoryStore
	mu      sync.Mutex
	saves   int
	saveErr error
}

func (s *countingStore) Save(ctx context.Context, st *statex.Session) error {
	s.mu.Lock()
	s.saves++
	err := s.saveErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, st)
}

func (s *countingStore) failSaves(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

func (s *countingStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type harness struct {
	store     *countingStore
	router    *scriptedCompleter
	extractor *scriptedCompleter
	composer  *scriptedCompleter
	searcher  *fakeSearcher
	sender    *spySender
	log       *eventLog
	prompts   *promptx.PromptSet
	orch      *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	prompts, err := promptx.LoadPromptSet("es", promptx.Business{
		Name:          "Proimi Home",
		AssistantName: "Imi",
		ContactName:   "Nicole",
		ContactEmail:  "ventas@proimi.test",
		Address:       "Blvd Morazán, Tegucigalpa",
		Hours:         "Lun-Sáb: 9:00 AM - 6:30 PM",
	})
	if err != nil {
		t.Fatalf("LoadPromptSet() error = %v", err)
	}

	log := &eventLog{}
	h := &harness{
		store:     &countingStore{MemoryStore: statex.NewMemoryStore()},
		router:    &scriptedCompleter{fn: reply("direct")},
		extractor: &scriptedCompleter{fn: reply("NAME: MISSING\nEMAIL: MISSING\nPHONE: MISSING")},
		composer:  &scriptedCompleter{fn: echoCombine},
		searcher:  &fakeSearcher{log: log},
		sender:    &spySender{log: log, result: &contractx.SendResult{DeliveryID: "msg_1"}},
		log:       log,
		prompts:   prompts,
	}

	caps, err := NewCapabilities(Dependencies{
		Completers: llmx.Completers{Router: h.router, Extractor: h.extractor, Composer: h.composer},
		Catalog:    h.searcher,
		Sender:     h.sender,
		Recipient:  testRecipient,
		Prompts:    prompts,
	})
	if err != nil {
		t.Fatalf("NewCapabilities() error = %v", err)
	}
	h.orch, err = New(h.store, caps, Config{Prompts: prompts})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func (h *harness) seed(t *testing.T, key string, mutate func(*statex.Session)) {
	t.Helper()
	sess := statex.NewSession(key, h.orch.now())
	mutate(sess)
	if err := h.store.MemoryStore.Save(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func (h *harness) escalation(t *testing.T) string {
	t.Helper()
	out, err := h.prompts.Render(h.prompts.Messages.Escalation, nil)
	if err != nil {
		t.Fatalf("render escalation: %v", err)
	}
	return out
}

func (h *harness) load(t *testing.T, key string) *statex.Session {
	t.Helper()
	sess, err := h.store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", key, err)
	}
	return sess
}

var juan = statex.ContactInfo{Name: "Juan Perez", Email: "juan@example.com", Phone: "99887766"}

func TestNewRequiresCapabilities(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if _, err := New(nil, h.orch.caps, Config{Prompts: h.prompts}); err == nil {
		t.Fatal("expected error for nil store")
	}
	caps := h.orch.caps
	caps.Notifier = nil
	if _, err := New(h.store, caps, Config{Prompts: h.prompts}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := New(h.store, h.orch.caps, Config{}); err == nil {
		t.Fatal("expected error for missing prompts")
	}
}

func TestHandleMessageInvalidInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.orch.HandleMessage(context.Background(), "   ", "hola")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	_, err = h.orch.HandleMessage(context.Background(), "s1", "    ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if h.store.Saves() != 0 {
		t.Fatalf("invalid input must not touch the store, saves=%d", h.store.Saves())
	}
	if got := h.orch.Process(context.Background(), "s1", ""); got != h.prompts.FatalError() {
		t.Fatalf("Process() = %q, want fatal apology", got)
	}
}

func TestGreetingRoutesDirect(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.fn = routeByMessage(map[string]string{"Hola": "direct"}, "catalog")

	out, err := h.orch.HandleTurn(context.Background(), "whatsapp_504", "Hola")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out.Route != statex.RouteDirect {
		t.Fatalf("route = %q, want direct", out.Route)
	}
	if !strings.Contains(out.Reply, "Imi") {
		t.Fatalf("reply = %q, want greeting", out.Reply)
	}

	sess := h.load(t, "whatsapp_504")
	if sess.PendingAction {
		t.Fatal("greeting must not raise pending action")
	}
	if len(sess.Messages) != 2 || sess.Messages[0].Role != statex.RoleHuman || sess.Messages[1].Role != statex.RoleAssistant {
		t.Fatalf("unexpected history: %+v", sess.Messages)
	}
	// load_session, orchestrate, direct, finalize_reply
	if h.store.Saves() != 4 || sess.Version != 4 {
		t.Fatalf("expected one checkpoint per node, saves=%d version=%d", h.store.Saves(), sess.Version)
	}
	if h.searcher.calls != 0 || len(h.sender.mails) != 0 {
		t.Fatal("direct turn must not reach catalog or notification")
	}
}

func TestPurchaseCollectsContactThenNotifies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.fn = routeByMessage(map[string]string{"Quiero comprar esta mesa": "notify"}, "catalog")
	ctx := context.Background()

	out, err := h.orch.HandleTurn(ctx, "s-buy", "Quiero comprar esta mesa")
	if err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	if out.Reply != h.prompts.AskFor(statex.ContactFields) {
		t.Fatalf("reply = %q, want question for all three fields", out.Reply)
	}
	if !out.Pending || out.Outcome != "" {
		t.Fatalf("unexpected output: %+v", out)
	}
	sess := h.load(t, "s-buy")
	if !sess.PendingAction || sess.PendingRoute != statex.RouteNotify || !sess.NeedsContactInfo {
		t.Fatalf("pending state not persisted: %+v", sess)
	}
	if len(h.sender.mails) != 0 {
		t.Fatal("notification sent before contact info was complete")
	}

	routerCalls := h.router.Calls()
	extractorCalls := h.extractor.Calls()

	out, err = h.orch.HandleTurn(ctx, "s-buy", "Juan Perez, juan@example.com, 99887766")
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if h.router.Calls() != routerCalls {
		t.Fatal("router must not be consulted while collecting contact info")
	}
	if h.extractor.Calls() != extractorCalls {
		t.Fatal("pattern extraction should have filled every field")
	}
	if out.Outcome != statex.NotificationSent || out.Pending {
		t.Fatalf("unexpected output: %+v", out)
	}
	for _, want := range []string{"✅", "Juan Perez", "juan@example.com", "99887766"} {
		if !strings.Contains(out.Reply, want) {
			t.Fatalf("reply %q does not contain %q", out.Reply, want)
		}
	}

	if len(h.sender.mails) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(h.sender.mails))
	}
	mail := h.sender.mails[0]
	if mail.to != testRecipient || !strings.Contains(mail.subject, "Juan Perez") {
		t.Fatalf("unexpected mail header: %+v", mail)
	}
	if !strings.Contains(mail.body, "Quiero comprar esta mesa") || !strings.Contains(mail.body, "99887766") {
		t.Fatalf("mail body misses the request or contact: %q", mail.body)
	}

	sess = h.load(t, "s-buy")
	if sess.PendingAction || sess.NeedsContactInfo || sess.ContactInfo != juan {
		t.Fatalf("unexpected final session: %+v", sess)
	}
}

func TestCatalogFailureEscalates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.fn = reply("catalog")

	out, err := h.orch.HandleTurn(context.Background(), "s-sofa", "Muéstrame sofás grises")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	want := h.escalation(t)
	if out.Reply != want {
		t.Fatalf("reply = %q, want escalation %q", out.Reply, want)
	}
	if h.composer.Calls() != 0 {
		t.Fatal("escalation must not go through the combiner")
	}
	if sess := h.load(t, "s-sofa"); !sess.RetryNeeded {
		t.Fatal("retryNeeded not persisted")
	}
}

func TestUnparseableRouteDefaultsToCatalog(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.fn = reply("no estoy seguro")
	h.searcher.turns = []statex.Turn{
		{Role: statex.RoleTool, Content: `{"products":[{"name":"Sofá Lino"}]}`},
		{Role: statex.RoleAssistant, Content: "Tenemos el Sofá Lino en gris."},
	}

	out, err := h.orch.HandleTurn(context.Background(), "s-x", "algo gris")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out.Route != statex.RouteCatalog {
		t.Fatalf("route = %q, want catalog", out.Route)
	}
	if !strings.Contains(out.Reply, "Sofá Lino") {
		t.Fatalf("reply = %q", out.Reply)
	}
}

func TestNotificationNeverReportsFalseSuccess(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		result   *contractx.SendResult
		err      error
		composer func(string, []statex.Turn) (string, error)
		want     statex.NotificationOutcome
	}{
		{
			name:     "narrative result, combiner down",
			result:   &contractx.SendResult{Raw: "I will send the email to Nicole now"},
			composer: func(string, []statex.Turn) (string, error) { return "", errors.New("timeout") },
			want:     statex.NotificationAttemptedButFailed,
		},
		{
			name:     "transport error, combiner claims success",
			result:   &contractx.SendResult{Raw: "502"},
			err:      errors.New("bad gateway"),
			composer: reply("✅ ¡Listo! Ya se lo envié a Nicole."),
			want:     statex.NotificationAttemptedButFailed,
		},
		{
			name:     "nothing handed over",
			composer: reply("✅ ¡Listo!"),
			want:     statex.NotificationNotAttempted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.router.fn = reply("notify")
			h.composer.fn = tc.composer
			h.sender.result = tc.result
			h.sender.err = tc.err
			h.seed(t, "s-fail", func(s *statex.Session) { s.ContactInfo = juan })

			out, err := h.orch.HandleTurn(context.Background(), "s-fail", "Avisale a Nicole que quiero la mesa")
			if err != nil {
				t.Fatalf("HandleTurn() error = %v", err)
			}
			if out.Outcome != tc.want {
				t.Fatalf("outcome = %q, want %q", out.Outcome, tc.want)
			}
			if !strings.Contains(out.Reply, h.prompts.Business.ContactEmail) {
				t.Fatalf("reply %q lacks the direct contact path", out.Reply)
			}
			sess := h.load(t, "s-fail")
			if sess.NotificationOutcome == statex.NotificationSent {
				t.Fatal("session records a success that never happened")
			}
			if sess.PendingAction {
				t.Fatal("pending action must clear after the attempt")
			}
		})
	}
}

func TestBothRunsCatalogBeforeNotification(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.fn = reply("both")
	h.searcher.turns = []statex.Turn{{Role: statex.RoleAssistant, Content: "Comedor Roble de 6 sillas, L 18,500."}}
	h.seed(t, "s-both", func(s *statex.Session) { s.ContactInfo = juan })

	out, err := h.orch.HandleTurn(context.Background(), "s-both", "Mostrame comedores y pasale mi pedido a Nicole")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if got := h.log.String(); got != "search,send" {
		t.Fatalf("events = %q, want search then send", got)
	}
	if out.Outcome != statex.NotificationSent {
		t.Fatalf("outcome = %q", out.Outcome)
	}
	for _, want := range []string{"Comedor Roble", "✅"} {
		if !strings.Contains(out.Reply, want) {
			t.Fatalf("reply %q does not contain %q", out.Reply, want)
		}
	}
	if !strings.Contains(h.sender.mails[0].body, "Comedor Roble") {
		t.Fatal("catalog answer not included in the notification body")
	}
}

func TestBothWithCatalogDownKeepsNotificationPending(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.fn = reply("both")
	h.searcher.err = errors.New("catalog offline")
	h.seed(t, "s-down", func(s *statex.Session) { s.ContactInfo = juan })
	ctx := context.Background()

	out, err := h.orch.HandleTurn(ctx, "s-down", "Mostrame comedores y pasale mi pedido a Nicole")
	if err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	if out.Reply != h.escalation(t) {
		t.Fatalf("reply = %q, want escalation", out.Reply)
	}
	sess := h.load(t, "s-down")
	if !sess.PendingAction || sess.PendingRoute != statex.RouteNotify || !sess.AwaitingConfirmation {
		t.Fatalf("expected pending notify awaiting confirmation, got %+v", sess)
	}
	if len(h.sender.mails) != 0 {
		t.Fatal("nothing should be sent on the escalation turn")
	}

	out, err = h.orch.HandleTurn(ctx, "s-down", "sí")
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if out.Outcome != statex.NotificationSent || len(h.sender.mails) != 1 {
		t.Fatalf("expected the pending notification to go out, got %+v", out)
	}
}

func TestDeclinedForwardingOfferDoesNotNotify(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.fn = routeByMessage(map[string]string{
		"Mostrame comedores y pasale mi pedido a Nicole": "both",
	}, "direct")
	h.searcher.err = errors.New("catalog offline")
	h.seed(t, "s-decline", func(s *statex.Session) { s.ContactInfo = juan })
	ctx := context.Background()

	if _, err := h.orch.HandleTurn(ctx, "s-decline", "Mostrame comedores y pasale mi pedido a Nicole"); err != nil {
		t.Fatalf("first turn error = %v", err)
	}

	out, err := h.orch.HandleTurn(ctx, "s-decline", "no, gracias, no le envíes nada")
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if len(h.sender.mails) != 0 {
		t.Fatalf("declined offer sent %d notification(s)", len(h.sender.mails))
	}
	if out.Route != statex.RouteDirect || out.Outcome == statex.NotificationSent {
		t.Fatalf("declined offer handled as %+v", out)
	}
	sess := h.load(t, "s-decline")
	if sess.PendingAction || sess.AwaitingConfirmation || sess.PendingRoute != "" {
		t.Fatalf("declined offer left the notification pending: %+v", sess)
	}
	if sess.ContactInfo != juan {
		t.Fatal("declining must keep the collected contact info")
	}
}

func TestLostSendOutcomeIsNotResent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.router.fn = routeByMessage(map[string]string{
		"Avisale a Nicole que quiero la mesa": "notify",
		"Hola":                                "direct",
	}, "catalog")
	h.seed(t, "s-lost", func(s *statex.Session) { s.ContactInfo = juan })

	var keys []string
	h.sender.onSend = func(ctx context.Context) {
		keys = append(keys, contractx.IdempotencyKey(ctx))
		h.store.failSaves(errors.New("redis down"))
	}

	ctx := context.Background()
	if got := h.orch.Process(ctx, "s-lost", "Avisale a Nicole que quiero la mesa"); got != h.prompts.FatalError() {
		t.Fatalf("first reply = %q, want fatal apology", got)
	}
	stored := h.load(t, "s-lost")
	if !stored.PendingAction || stored.NotifyAttemptID == "" {
		t.Fatalf("attempt marker not persisted before the send: %+v", stored)
	}

	h.store.failSaves(nil)
	h.sender.onSend = nil
	out, err := h.orch.HandleTurn(ctx, "s-lost", "Hola")
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if len(h.sender.mails) != 1 {
		t.Fatalf("notification sent %d times, want once", len(h.sender.mails))
	}
	if out.Route != statex.RouteDirect || strings.Contains(out.Reply, "✅") {
		t.Fatalf("follow-up turn = %+v, want the greeting", out)
	}
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "s-lost-") {
		t.Fatalf("idempotency keys = %q", keys)
	}
	sess := h.load(t, "s-lost")
	if sess.PendingAction || sess.NotifyAttemptID != "" {
		t.Fatalf("stale attempt left pending: %+v", sess)
	}
}

// Random partial contact states must never reach the sender.
func TestNotificationGatedOnCompleteContact(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rng := rand.New(rand.NewSource(20241015))

	routes := []string{"catalog", "notify", "both", "direct", "???"}
	texts := []string{
		"ok", "gracias", "Juan Perez", "juan@example.com", "99887766",
		"Quiero comprar", "Mostrame sofás", "Juan Perez, juan@example.com, 99887766",
	}
	pick := func(s []string) string { return s[rng.Intn(len(s))] }

	for i := 0; i < 300; i++ {
		key := fmt.Sprintf("prop-%d", i)
		route := pick(routes)
		h.router.fn = reply(route)
		if rng.Intn(2) == 0 {
			h.searcher.turns = []statex.Turn{{Role: statex.RoleAssistant, Content: "Sofá Lino gris."}}
		} else {
			h.searcher.turns = nil
		}
		h.sender.result = &contractx.SendResult{DeliveryID: "msg"}
		if rng.Intn(3) == 0 {
			h.sender.result = &contractx.SendResult{Raw: "maybe"}
		}

		var initial statex.ContactInfo
		h.seed(t, key, func(s *statex.Session) {
			if rng.Intn(2) == 0 {
				s.ContactInfo.Name = juan.Name
			}
			if rng.Intn(2) == 0 {
				s.ContactInfo.Email = juan.Email
			}
			if rng.Intn(2) == 0 {
				s.ContactInfo.Phone = juan.Phone
			}
			if rng.Intn(2) == 0 {
				s.MarkPending([]statex.Route{statex.RouteNotify, statex.RouteBoth}[rng.Intn(2)])
				s.NeedsContactInfo = !s.ContactInfo.Complete()
			}
			initial = s.ContactInfo
		})

		sent := len(h.sender.mails)
		h.sender.onSend = func(ctx context.Context) {
			sess, err := h.store.Load(ctx, key)
			if err != nil {
				t.Errorf("iteration %d: load at send time: %v", i, err)
				return
			}
			if !sess.ContactInfo.Complete() {
				t.Errorf("iteration %d: sender reached with contact %+v", i, sess.ContactInfo)
			}
		}

		text := pick(texts)
		out, err := h.orch.HandleTurn(context.Background(), key, text)
		if err != nil {
			t.Fatalf("iteration %d (route=%s text=%q): %v", i, route, text, err)
		}
		if strings.TrimSpace(out.Reply) == "" {
			t.Fatalf("iteration %d: empty reply", i)
		}

		final := h.load(t, key)
		if !final.ContactInfo.Complete() && len(h.sender.mails) != sent {
			t.Fatalf("iteration %d: notified with incomplete contact %+v", i, final.ContactInfo)
		}
		for _, f := range statex.ContactFields {
			if initial.Has(f) && final.ContactInfo.Get(f) != initial.Get(f) {
				t.Fatalf("iteration %d: field %s overwritten", i, f)
			}
		}
		if out.Outcome == statex.NotificationSent && !h.sender.result.Confirmed() {
			t.Fatalf("iteration %d: unconfirmed result reported as sent", i)
		}
	}
}

func TestProcessNeverFails(t *testing.T) {
	t.Parallel()

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.store.saveErr = errors.New("redis down")

		if _, err := h.orch.HandleMessage(context.Background(), "s1", "Hola"); err == nil {
			t.Fatal("expected the store error to surface from HandleMessage")
		}
		if got := h.orch.Process(context.Background(), "s1", "Hola"); got != h.prompts.FatalError() {
			t.Fatalf("Process() = %q, want fatal apology", got)
		}
	})

	t.Run("panicking capability", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.router.fn = func(string, []statex.Turn) (string, error) { panic("boom") }

		got := h.orch.Process(context.Background(), "s2", "Hola")
		if got != h.prompts.FatalError() {
			t.Fatalf("Process() = %q, want fatal apology", got)
		}
		if !strings.Contains(got, "Blvd Morazán") {
			t.Fatalf("fatal apology lacks the store address: %q", got)
		}
	})
}

func TestProcessSerializesSameSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	const n = 8

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.orch.Process(context.Background(), "s-busy", fmt.Sprintf("hola %d", i))
		}(i)
	}
	wg.Wait()

	sess := h.load(t, "s-busy")
	if len(sess.Messages) != 2*n {
		t.Fatalf("expected %d turns, got %d", 2*n, len(sess.Messages))
	}
	for i, turn := range sess.Messages {
		want := statex.RoleHuman
		if i%2 == 1 {
			want = statex.RoleAssistant
		}
		if turn.Role != want {
			t.Fatalf("turn %d role = %q, want %q", i, turn.Role, want)
		}
	}
	if h.orch.locks.Len() != 0 {
		t.Fatalf("lock entries leaked: %d", h.orch.locks.Len())
	}
}
