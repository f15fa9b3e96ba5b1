package observers

import (
	"strings"
	"testing"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
)

func TestNewAllCallbacks(t *testing.T) {
	t.Parallel()

	if NewAllCallbacks() == nil {
		t.Fatal("expected handler")
	}
}

func TestPreviewCollapsesAndTruncates(t *testing.T) {
	t.Parallel()

	if got := preview("  hola \n  mundo "); got != "hola mundo" {
		t.Fatalf("preview() = %q", got)
	}
	long := strings.Repeat("á", contentPreview+10)
	if got := preview(long); len([]rune(got)) != contentPreview+3 {
		t.Fatalf("preview() length = %d", len([]rune(got)))
	}
}

func TestLastUserContent(t *testing.T) {
	t.Parallel()

	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" primero "),
		nil,
		schema.AssistantMessage("respuesta", nil),
		schema.UserMessage("segundo"),
	}
	if got := lastUserContent(msgs); got != "segundo" {
		t.Fatalf("lastUserContent() = %q", got)
	}
}

func TestNodeName(t *testing.T) {
	t.Parallel()

	if got := nodeName(&einocb.RunInfo{Name: "catalog", Type: "Lambda"}); got != "catalog" {
		t.Fatalf("nodeName() = %q", got)
	}
	if got := nodeName(&einocb.RunInfo{Type: "Lambda"}); got != "Lambda" {
		t.Fatalf("nodeName() = %q", got)
	}
	if got := nodeName(nil); got != "" {
		t.Fatalf("nodeName(nil) = %q", got)
	}
}
