package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/uipilot/agent/memory"
)

// fakeDriver answers from sets of visible / clickable / fillable selectors.
type fakeDriver struct {
	mu        sync.Mutex
	visible   map[string]bool
	clickable map[string]bool
	fillable  map[string]bool
	calls     []string
	filled    map[string]string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		visible:   make(map[string]bool),
		clickable: make(map[string]bool),
		fillable:  make(map[string]bool),
		filled:    make(map[string]string),
	}
}

func (d *fakeDriver) WaitFor(_ context.Context, sel string, _ time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "wait:"+sel)
	return d.visible[sel]
}

func (d *fakeDriver) AttemptClick(_ context.Context, sel string, _ time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "click:"+sel)
	return d.clickable[sel]
}

func (d *fakeDriver) Fill(_ context.Context, sel, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "fill:"+sel)
	if !d.fillable[sel] {
		return errors.New("not editable")
	}
	d.filled[sel] = text
	return nil
}

type interactionRecord struct {
	page, action string
	success      bool
	attempts     int
}

type fakeRecorder struct {
	records []interactionRecord
}

func (r *fakeRecorder) RecordInteraction(_, page, action string, success bool, attempts int, _ time.Duration) {
	r.records = append(r.records, interactionRecord{page, action, success, attempts})
}

var testDefaults = memory.DefaultTable{
	"login_page": {
		"login_button": {"#login", "button[type=submit]", "role=button[name='Sign in']"},
		"email_input":  {"#email", "input[name=username]"},
	},
}

func newTestInteractor(t *testing.T, d Driver, opts ...Option) (*Interactor, *memory.Store) {
	t.Helper()
	store, err := memory.Open(context.Background(), memory.Config{AgentName: "test", CacheDir: t.TempDir()},
		memory.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts = append([]Option{WithLogger(zaptest.NewLogger(t)), WithWaitTimeout(time.Millisecond)}, opts...)
	return New(memory.NewResolver(store, testDefaults), d, opts...), store
}

func TestClick_FallsBackAndLearns(t *testing.T) {
	d := newFakeDriver()
	d.visible["button[type=submit]"] = true
	d.clickable["button[type=submit]"] = true
	rec := &fakeRecorder{}
	in, store := newTestInteractor(t, d, WithRecorder(rec))
	ctx := context.Background()

	sel, err := in.Click(ctx, "login_page", "login_button")
	require.NoError(t, err)
	assert.Equal(t, "button[type=submit]", sel)
	assert.Equal(t, []string{"wait:#login", "wait:button[type=submit]", "click:button[type=submit]"}, d.calls)

	entry, ok := store.Entry("login_page", "login_button")
	require.True(t, ok)
	assert.Equal(t, "button[type=submit]", entry.Selector)
	// #login failed first (0.0 via new entry), then the working selector overwrote it
	assert.InDelta(t, 0.3, entry.SuccessRate, 1e-9)
	assert.Equal(t, 2, entry.Uses)

	// second run tries the remembered selector first
	d.calls = nil
	sel, err = in.Click(ctx, "login_page", "login_button")
	require.NoError(t, err)
	assert.Equal(t, "button[type=submit]", sel)
	assert.Equal(t, []string{"wait:button[type=submit]", "click:button[type=submit]"}, d.calls)

	entry, _ = store.Entry("login_page", "login_button")
	assert.InDelta(t, 0.51, entry.SuccessRate, 1e-9)

	assert.Equal(t, []interactionRecord{
		{"login_page", "click", true, 2},
		{"login_page", "click", true, 1},
	}, rec.records)
}

func TestClick_VisibleButNotClickable(t *testing.T) {
	d := newFakeDriver()
	d.visible["#login"] = true
	d.visible["button[type=submit]"] = true
	d.clickable["button[type=submit]"] = true
	in, store := newTestInteractor(t, d)

	sel, err := in.Click(context.Background(), "login_page", "login_button")
	require.NoError(t, err)
	assert.Equal(t, "button[type=submit]", sel)
	assert.Contains(t, d.calls, "click:#login")

	entry, _ := store.Entry("login_page", "login_button")
	assert.Equal(t, "button[type=submit]", entry.Selector)
}

func TestClick_NoWorkingSelector(t *testing.T) {
	d := newFakeDriver()
	rec := &fakeRecorder{}
	in, store := newTestInteractor(t, d, WithRecorder(rec))

	_, err := in.Click(context.Background(), "login_page", "login_button")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoWorkingSelector)
	assert.Contains(t, err.Error(), "login_page/login_button")

	// every failure is recorded; the last candidate tried is what remains
	entry, ok := store.Entry("login_page", "login_button")
	require.True(t, ok)
	assert.Equal(t, "role=button[name='Sign in']", entry.Selector)
	assert.Equal(t, 0.0, entry.SuccessRate)
	assert.Equal(t, 3, entry.Uses)

	require.Len(t, rec.records, 1)
	assert.False(t, rec.records[0].success)
	assert.Equal(t, 3, rec.records[0].attempts)
}

func TestClick_UnknownElement(t *testing.T) {
	in, _ := newTestInteractor(t, newFakeDriver())
	_, err := in.Click(context.Background(), "nowhere", "nothing")
	assert.ErrorIs(t, err, ErrNoWorkingSelector)
}

func TestClick_CanceledContext(t *testing.T) {
	in, store := newTestInteractor(t, newFakeDriver())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := in.Click(ctx, "login_page", "login_button")
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := store.Entry("login_page", "login_button")
	assert.False(t, ok)
}

func TestFill(t *testing.T) {
	d := newFakeDriver()
	d.visible["#email"] = true
	d.visible["input[name=username]"] = true
	d.fillable["input[name=username]"] = true
	in, store := newTestInteractor(t, d)

	sel, err := in.Fill(context.Background(), "login_page", "email_input", "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "input[name=username]", sel)
	assert.Equal(t, "me@example.com", d.filled["input[name=username]"])

	entry, _ := store.Entry("login_page", "email_input")
	assert.Equal(t, "input[name=username]", entry.Selector)
}

func TestVisible_DoesNotTouchMemory(t *testing.T) {
	d := newFakeDriver()
	d.visible["#email"] = true
	in, store := newTestInteractor(t, d)
	ctx := context.Background()

	sel, ok, err := in.Visible(ctx, "login_page", "email_input", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "#email", sel)

	_, ok, err = in.Visible(ctx, "login_page", "login_button", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, store.Pages())
}

func TestClick_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	in, _ := newTestInteractor(t, newFakeDriver(), WithTracer(tp.Tracer("test")))
	_, err := in.Click(context.Background(), "login_page", "login_button")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "interaction.click", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
