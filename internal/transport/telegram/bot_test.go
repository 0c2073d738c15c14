package telegram

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"torwatch/internal/app/node"
)

// recordingHandler records which intent each update was routed to.
type recordingHandler struct {
	calls []string
	users []node.UserID
	texts []string
}

func (h *recordingHandler) record(name string, id node.UserID) error {
	h.calls = append(h.calls, name)
	h.users = append(h.users, id)
	return nil
}

func (h *recordingHandler) HandleStart(ctx context.Context, id node.UserID) error {
	return h.record("start", id)
}

func (h *recordingHandler) HandleHelp(ctx context.Context, id node.UserID) error {
	return h.record("help", id)
}

func (h *recordingHandler) HandleAddRequested(ctx context.Context, id node.UserID) error {
	return h.record("add", id)
}

func (h *recordingHandler) HandleRemoveRequested(ctx context.Context, id node.UserID) error {
	return h.record("remove", id)
}

func (h *recordingHandler) HandleListRequested(ctx context.Context, id node.UserID) error {
	return h.record("list", id)
}

func (h *recordingHandler) HandleStatusRequested(ctx context.Context, id node.UserID) error {
	return h.record("status", id)
}

func (h *recordingHandler) HandleFreeText(ctx context.Context, id node.UserID, text string) error {
	h.texts = append(h.texts, text)
	return h.record("free_text", id)
}

func newUpdate(chatID int64, text string) update {
	return update{Message: &message{Chat: chat{ID: chatID}, Text: text}}
}

func TestHandleUpdateRouting(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
	}{
		{"/start", "start"},
		{"/help", "help"},
		{ButtonAdd, "add"},
		{ButtonRemove, "remove"},
		{ButtonList, "list"},
		{ButtonStatus, "status"},
		{"47B72187844C00AA5D524415E52E3BE81E63056B", "free_text"},
		{"  /start  ", "start"},
	}

	for _, tc := range cases {
		handler := &recordingHandler{}
		b := NewBot(nil, handler, BotOptions{})

		b.handleUpdate(context.Background(), newUpdate(42, tc.text))

		if len(handler.calls) != 1 || handler.calls[0] != tc.want {
			t.Fatalf("text %q routed to %v, want [%s]", tc.text, handler.calls, tc.want)
		}
		if handler.users[0] != 42 {
			t.Fatalf("text %q: user=%d want=42", tc.text, handler.users[0])
		}
	}
}

func TestHandleUpdateTrimsFreeText(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	b := NewBot(nil, handler, BotOptions{})

	b.handleUpdate(context.Background(), newUpdate(42, "  some text  "))

	if len(handler.texts) != 1 || handler.texts[0] != "some text" {
		t.Fatalf("texts=%v", handler.texts)
	}
}

func TestHandleUpdateIgnoresEmpty(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	b := NewBot(nil, handler, BotOptions{})

	b.handleUpdate(context.Background(), update{})
	b.handleUpdate(context.Background(), newUpdate(42, "   "))
	b.handleUpdate(context.Background(), newUpdate(0, "/start"))

	if len(handler.calls) != 0 {
		t.Fatalf("expected no calls, got %v", handler.calls)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "offset")

	if err := saveOffset(path, 1234); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := loadOffset(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 1234 {
		t.Fatalf("got=%d want=1234", got)
	}
}

func TestLoadOffsetMissingFile(t *testing.T) {
	t.Parallel()

	got, err := loadOffset(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 0 {
		t.Fatalf("got=%d want=0", got)
	}
}

func TestLoadOffsetGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "offset")
	if err := os.WriteFile(path, []byte("not a number\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := loadOffset(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOffsetDisabledWhenPathEmpty(t *testing.T) {
	t.Parallel()

	if err := saveOffset("", 99); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := loadOffset("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 0 {
		t.Fatalf("got=%d want=0", got)
	}
}
