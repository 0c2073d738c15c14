package watchdog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"torwatch/internal/app/directory"
	"torwatch/internal/app/feed"
	"torwatch/internal/app/node"
	"torwatch/internal/app/registry"
	"torwatch/internal/configs"
)

func fp(c byte) node.Fingerprint {
	return node.Fingerprint(strings.Repeat(string(c), 40))
}

// fakeLookuper serves canned results per fingerprint.
type fakeLookuper struct {
	mu      sync.Mutex
	results map[node.Fingerprint]func() (*directory.RelayInfo, error)
	calls   int
}

func (f *fakeLookuper) Lookup(ctx context.Context, fingerprint node.Fingerprint) (*directory.RelayInfo, error) {
	f.mu.Lock()
	f.calls++
	fn, ok := f.results[fingerprint]
	f.mu.Unlock()

	if !ok {
		return nil, directory.ErrNotFound
	}
	return fn()
}

func (f *fakeLookuper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingNotifier captures notifications per user.
type recordingNotifier struct {
	mu       sync.Mutex
	messages map[node.UserID][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{messages: make(map[node.UserID][]string)}
}

func (n *recordingNotifier) Notify(ctx context.Context, id node.UserID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[id] = append(n.messages[id], text)
	return nil
}

func (n *recordingNotifier) forUser(id node.UserID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages[id]...)
}

func running() (*directory.RelayInfo, error) {
	return &directory.RelayInfo{
		Running:       true,
		Nickname:      "ok",
		LastRestarted: time.Now().Add(-time.Hour),
	}, nil
}

func offline() (*directory.RelayInfo, error) {
	return &directory.RelayInfo{LastRestarted: time.Now().Add(-time.Hour)}, nil
}

func newTestScheduler(store registry.Store, dir Lookuper, notifier Notifier, hub *feed.Hub, mode string) *Scheduler {
	return NewScheduler(store, dir, notifier, hub, Config{
		Interval:    time.Hour,
		Mode:        mode,
		Concurrency: 4,
		LookupRate:  10000,
	})
}

func TestCycleAlertModeNotifiesOnlyProblems(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := registry.NewMemoryStore()
	for _, f := range []node.Fingerprint{fp('A'), fp('B'), fp('C'), fp('D')} {
		if err := store.Add(ctx, 7, f); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}

	dir := &fakeLookuper{results: map[node.Fingerprint]func() (*directory.RelayInfo, error){
		fp('A'): running,
		fp('B'): func() (*directory.RelayInfo, error) { return nil, errors.New("connection refused") },
		fp('C'): offline,
		// fp('D') has no entry and resolves to ErrNotFound.
	}}
	notifier := newRecordingNotifier()

	s := newTestScheduler(store, dir, notifier, nil, configs.ReportModeAlert)
	s.RunCycle(ctx)

	if got := dir.callCount(); got != 4 {
		t.Fatalf("lookup count mismatch: got=%d want=4", got)
	}

	messages := notifier.forUser(7)
	if len(messages) != 3 {
		t.Fatalf("notification count mismatch: got=%d want=3 (%v)", len(messages), messages)
	}

	joined := strings.Join(messages, "\n---\n")
	if strings.Contains(joined, string(fp('A'))) {
		t.Fatalf("running relay must not alert in alert mode:\n%s", joined)
	}
	if !strings.Contains(joined, "directory service unavailable") {
		t.Fatalf("expected lookup failure alert:\n%s", joined)
	}
	if !strings.Contains(joined, "Offline!") {
		t.Fatalf("expected offline alert:\n%s", joined)
	}
	if !strings.Contains(joined, "No relay found") {
		t.Fatalf("expected not-found alert:\n%s", joined)
	}
}

func TestCycleAlwaysModeReportsEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := registry.NewMemoryStore()
	if err := store.Add(ctx, 7, fp('A')); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := store.Add(ctx, 7, fp('C')); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	dir := &fakeLookuper{results: map[node.Fingerprint]func() (*directory.RelayInfo, error){
		fp('A'): running,
		fp('C'): offline,
	}}
	notifier := newRecordingNotifier()

	s := newTestScheduler(store, dir, notifier, nil, configs.ReportModeAlways)
	s.RunCycle(ctx)

	messages := notifier.forUser(7)
	if len(messages) != 2 {
		t.Fatalf("notification count mismatch: got=%d want=2 (%v)", len(messages), messages)
	}

	joined := strings.Join(messages, "\n---\n")
	if !strings.Contains(joined, "Running...") || !strings.Contains(joined, "Offline!") {
		t.Fatalf("expected full reports for both relays:\n%s", joined)
	}
}

func TestCycleIsolatesFailuresAcrossUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := registry.NewMemoryStore()
	if err := store.Add(ctx, 1, fp('A')); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := store.Add(ctx, 2, fp('B')); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	dir := &fakeLookuper{results: map[node.Fingerprint]func() (*directory.RelayInfo, error){
		fp('A'): func() (*directory.RelayInfo, error) { panic("lookup exploded") },
		fp('B'): offline,
	}}
	notifier := newRecordingNotifier()

	s := newTestScheduler(store, dir, notifier, nil, configs.ReportModeAlert)
	s.RunCycle(ctx)

	if got := notifier.forUser(2); len(got) != 1 {
		t.Fatalf("panic for user 1 leaked into user 2's poll: got=%v", got)
	}
}

func TestCyclePublishesFeedEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := registry.NewMemoryStore()
	if err := store.Add(ctx, 7, fp('A')); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := store.Add(ctx, 7, fp('C')); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	dir := &fakeLookuper{results: map[node.Fingerprint]func() (*directory.RelayInfo, error){
		fp('A'): running,
		fp('C'): offline,
	}}

	hub := feed.NewHub()
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	s := newTestScheduler(store, dir, newRecordingNotifier(), hub, configs.ReportModeAlert)
	s.RunCycle(ctx)

	outcomes := map[string]string{}
	for len(outcomes) < 2 {
		select {
		case event := <-events:
			outcomes[event.Fingerprint] = event.Outcome
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for feed events, got %v", outcomes)
		}
	}

	if outcomes[string(fp('A'))] != feed.OutcomeRunning {
		t.Fatalf("outcome mismatch for A: got=%q", outcomes[string(fp('A'))])
	}
	if outcomes[string(fp('C'))] != feed.OutcomeOffline {
		t.Fatalf("outcome mismatch for C: got=%q", outcomes[string(fp('C'))])
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := registry.NewMemoryStore()
	dir := &fakeLookuper{}
	s := newTestScheduler(store, dir, newRecordingNotifier(), nil, configs.ReportModeAlert)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop after cancellation")
	}
}
