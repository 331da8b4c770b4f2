package relay_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/directory"
	"github.com/edgard/relaybot/internal/relay"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// modernc sqlite and database/sql keep their own background goroutines
		// alive until the pool is closed at cleanup.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

type call struct {
	Op   string
	To   int64
	Item relay.Item
}

type fakeSender struct {
	mu    sync.Mutex
	calls []call
	fail  map[int64]error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (f *fakeSender) record(ctx context.Context, op string, to int64, item relay.Item) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: op, To: to, Item: item})
	return f.fail[to]
}

func (f *fakeSender) Copy(ctx context.Context, to int64, item relay.Item) error {
	return f.record(ctx, "copy", to, item)
}

func (f *fakeSender) Forward(ctx context.Context, to int64, item relay.Item) error {
	return f.record(ctx, "forward", to, item)
}

func (f *fakeSender) SendText(ctx context.Context, to int64, text string) error {
	return f.record(ctx, "text", to, relay.Literal(text))
}

func (f *fakeSender) callsTo(to int64) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.To == to {
			out = append(out, c)
		}
	}
	return out
}

type fakeDirectory struct {
	mu       sync.Mutex
	channels []database.Channel
	listErr  error
	removed  []int64
}

func (d *fakeDirectory) List(context.Context, int64) ([]database.Channel, error) {
	return d.channels, d.listErr
}

func (d *fakeDirectory) Remove(_ context.Context, _ int64, channelID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removed = append(d.removed, channelID)
	return nil
}

func channels(ids ...int64) []database.Channel {
	out := make([]database.Channel, 0, len(ids))
	for _, id := range ids {
		out = append(out, database.Channel{OwnerID: 1, ChannelID: id, Title: fmt.Sprint(id)})
	}
	return out
}

func TestRelayNoChannels(t *testing.T) {
	sender := &fakeSender{}
	e := relay.NewEngine(&fakeDirectory{}, sender, relay.Options{Workers: 4}, nil)

	report, err := e.Relay(context.Background(), 1, []relay.Item{relay.Ref(1, 10)})
	require.NoError(t, err)
	assert.Zero(t, report.Channels)
	assert.Empty(t, sender.calls)
	assert.NotEmpty(t, report.RelayID)
}

func TestRelayNoItems(t *testing.T) {
	sender := &fakeSender{}
	e := relay.NewEngine(&fakeDirectory{channels: channels(-1)}, sender, relay.Options{}, nil)

	report, err := e.Relay(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Delivered)
	assert.Empty(t, sender.calls)
}

func TestRelayListError(t *testing.T) {
	listErr := errors.New("disk on fire")
	e := relay.NewEngine(&fakeDirectory{listErr: listErr}, &fakeSender{}, relay.Options{}, nil)

	_, err := e.Relay(context.Background(), 1, []relay.Item{relay.Literal("hi")})
	require.ErrorIs(t, err, listErr)
}

func TestRelayModes(t *testing.T) {
	tests := []struct {
		name string
		mode relay.Mode
		item relay.Item
		want string
	}{
		{"copy reference", relay.ModeCopy, relay.Ref(5, 50), "copy"},
		{"forward reference", relay.ModeForward, relay.Ref(5, 50), "forward"},
		{"literal in copy mode", relay.ModeCopy, relay.Literal("hello"), "text"},
		{"literal in forward mode", relay.ModeForward, relay.Literal("hello"), "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			e := relay.NewEngine(&fakeDirectory{channels: channels(-1)}, sender, relay.Options{Mode: tt.mode}, nil)

			report, err := e.Relay(context.Background(), 1, []relay.Item{tt.item})
			require.NoError(t, err)
			assert.Equal(t, 1, report.Delivered)
			require.Len(t, sender.calls, 1)
			assert.Equal(t, tt.want, sender.calls[0].Op)
			assert.Equal(t, tt.item, sender.calls[0].Item)
		})
	}
}

func TestRelayEveryPairOnceInOrder(t *testing.T) {
	sender := &fakeSender{}
	e := relay.NewEngine(&fakeDirectory{channels: channels(-1, -2, -3)}, sender, relay.Options{Workers: 3}, nil)
	items := []relay.Item{relay.Ref(9, 1), relay.Literal("two"), relay.Ref(9, 3)}

	report, err := e.Relay(context.Background(), 1, items)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Channels)
	assert.Equal(t, 9, report.Delivered)
	assert.Zero(t, report.Failed)

	for _, id := range []int64{-1, -2, -3} {
		got := sender.callsTo(id)
		require.Len(t, got, len(items))
		for i := range items {
			assert.Equal(t, items[i], got[i].Item, "channel %d item %d", id, i)
		}
	}
}

func TestRelayWorkerLimit(t *testing.T) {
	sender := &fakeSender{delay: 20 * time.Millisecond}
	e := relay.NewEngine(&fakeDirectory{channels: channels(-1, -2, -3, -4, -5, -6)}, sender, relay.Options{Workers: 2}, nil)

	_, err := e.Relay(context.Background(), 1, []relay.Item{relay.Literal("x")})
	require.NoError(t, err)
	assert.LessOrEqual(t, sender.maxInFlight.Load(), int32(2))
	assert.Len(t, sender.calls, 6)
}

func TestRelayFailureDoesNotStopOthers(t *testing.T) {
	sender := &fakeSender{fail: map[int64]error{-2: errors.New("flood wait")}}
	dir := &fakeDirectory{channels: channels(-1, -2, -3)}
	e := relay.NewEngine(dir, sender, relay.Options{Workers: 1}, nil)

	report, err := e.Relay(context.Background(), 1, []relay.Item{relay.Ref(1, 1), relay.Ref(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Delivered)
	assert.Equal(t, 2, report.Failed)
	assert.Empty(t, report.Pruned)
	assert.Empty(t, dir.removed, "ordinary failures keep the registration")
	assert.Len(t, sender.callsTo(-2), 2, "no retries, but later items are still attempted")
}

func TestRelayPrunesUnreachableOnce(t *testing.T) {
	sender := &fakeSender{fail: map[int64]error{
		-2: fmt.Errorf("forbidden: bot was kicked: %w", relay.ErrChannelUnreachable),
	}}
	dir := &fakeDirectory{channels: channels(-1, -2)}
	e := relay.NewEngine(dir, sender, relay.Options{Workers: 2}, nil)

	report, err := e.Relay(context.Background(), 1, []relay.Item{relay.Ref(1, 1), relay.Ref(1, 2), relay.Ref(1, 3)})
	require.NoError(t, err)
	assert.Equal(t, []int64{-2}, report.Pruned)
	assert.Equal(t, []int64{-2}, dir.removed)
	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, 3, report.Failed)
}

type chatsStub struct{}

func (chatsStub) ChatInfo(_ context.Context, id int64) (directory.ChatInfo, error) {
	return directory.ChatInfo{ID: id, Title: fmt.Sprintf("chan %d", id)}, nil
}

func TestRelayPruneRemovesFromDirectory(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "relay.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	dir := directory.New(database.NewStore(db, nil), chatsStub{}, directory.ScopePerOwner, nil)
	for _, id := range []int64{-1, -2} {
		_, err := dir.Upsert(ctx, 7, id)
		require.NoError(t, err)
	}

	sender := &fakeSender{fail: map[int64]error{
		-2: fmt.Errorf("bad request: chat not found: %w", relay.ErrChannelUnreachable),
	}}
	e := relay.NewEngine(dir, sender, relay.Options{Workers: 2}, nil)

	_, err = e.Relay(ctx, 7, []relay.Item{relay.Literal("hello")})
	require.NoError(t, err)

	list, err := dir.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(-1), list[0].ChannelID)
}

func TestRelayCanceledContext(t *testing.T) {
	sender := &fakeSender{}
	e := relay.NewEngine(&fakeDirectory{channels: channels(-1)}, sender, relay.Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := e.Relay(ctx, 1, []relay.Item{relay.Literal("a"), relay.Literal("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Empty(t, sender.calls)
}

func TestParseMode(t *testing.T) {
	m, err := relay.ParseMode(" Forward ")
	require.NoError(t, err)
	assert.Equal(t, relay.ModeForward, m)

	_, err = relay.ParseMode("mirror")
	assert.Error(t, err)
}
