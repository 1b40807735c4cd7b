package relay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/edvall/sheetstand/model"
	store "github.com/edvall/sheetstand/storage/memory"
	"github.com/rs/zerolog"
)

type testConn struct {
	id   string
	wire model.Wire
	out  chan model.Envelope
}

func newTestConn(t *testing.T, ctx context.Context, rl *Relay, id string) *testConn {
	t.Helper()

	tc := &testConn{
		id:   id,
		wire: model.NewWire(),
		out:  make(chan model.Envelope, 100),
	}
	if err := rl.Connect(ctx, id, tc.wire); err != nil {
		t.Fatalf("connect %s: %v", id, err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-tc.wire.TX:
				tc.out <- env
			}
		}
	}()
	return tc
}

func (tc *testConn) join(room string) {
	tc.wire.RX <- model.Envelope{Event: model.EventJoin, Room: room}
}

func (tc *testConn) send(room string, msg any) {
	tc.wire.RX <- model.Envelope{Event: model.EventMessage, Room: room, Message: msg}
}

// recvMessage waits for the next forwarded payload, skipping diagnostics.
func (tc *testConn) recvMessage(t *testing.T) any {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-tc.out:
			if env.Event == model.EventMessage {
				return env.Message
			}
		case <-deadline:
			t.Fatalf("%s: no message received in time", tc.id)
		}
	}
}

// waitLogs consumes diagnostics until n log envelopes arrived.
func (tc *testConn) waitLogs(t *testing.T, n int) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for n > 0 {
		select {
		case env := <-tc.out:
			if env.Event == model.EventLog {
				n--
			}
		case <-deadline:
			t.Fatalf("%s: logs did not arrive in time", tc.id)
		}
	}
}

// expectNoMessage drains pending envelopes and fails on any forwarded
// payload.
func (tc *testConn) expectNoMessage(t *testing.T) {
	t.Helper()

	for {
		select {
		case env := <-tc.out:
			if env.Event == model.EventMessage {
				t.Errorf("%s: unexpected message %v", tc.id, env.Message)
			}
		case <-time.After(100 * time.Millisecond):
			return
		}
	}
}

func newTestRelay() *Relay {
	logger := zerolog.Nop()
	return NewRelay(&logger, store.NewMemStore())
}

func TestForwardToRoomMembersExcludingSender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newTestRelay()
	a := newTestConn(t, ctx, rl, "a")
	b := newTestConn(t, ctx, rl, "b")
	c := newTestConn(t, ctx, rl, "c")

	a.join("orange")
	b.join("orange")
	c.join("orange")
	a.waitLogs(t, 2)
	b.waitLogs(t, 2)
	c.waitLogs(t, 2)

	a.send("orange", "hello from client")

	if got := b.recvMessage(t); got != "hello from client" {
		t.Errorf("b got %v", got)
	}
	if got := c.recvMessage(t); got != "hello from client" {
		t.Errorf("c got %v", got)
	}
	a.expectNoMessage(t)
	b.expectNoMessage(t)
	c.expectNoMessage(t)
}

func TestNonMemberNeverReceives(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newTestRelay()
	a := newTestConn(t, ctx, rl, "a")
	b := newTestConn(t, ctx, rl, "b")
	outsider := newTestConn(t, ctx, rl, "outsider")

	a.join("orange")
	b.join("orange")
	outsider.join("blue")
	a.waitLogs(t, 2)
	b.waitLogs(t, 2)
	outsider.waitLogs(t, 2)

	a.send("orange", "members only")

	if got := b.recvMessage(t); got != "members only" {
		t.Errorf("b got %v", got)
	}
	outsider.expectNoMessage(t)
}

func TestSendToEmptyRoomIsNoOp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newTestRelay()
	a := newTestConn(t, ctx, rl, "a")

	a.join("orange")
	a.waitLogs(t, 2)

	a.send("orange", "anyone?")
	a.expectNoMessage(t)
}

func TestDisconnectedConnStopsReceiving(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newTestRelay()
	a := newTestConn(t, ctx, rl, "a")
	b := newTestConn(t, ctx, rl, "b")

	a.join("orange")
	b.join("orange")
	a.waitLogs(t, 2)
	b.waitLogs(t, 2)

	if err := rl.Disconnect("b"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	a.send("orange", "after you left")
	b.expectNoMessage(t)
	a.expectNoMessage(t)
}

func TestJoinIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newTestRelay()
	a := newTestConn(t, ctx, rl, "a")
	b := newTestConn(t, ctx, rl, "b")

	a.join("orange")
	b.join("orange")
	b.join("orange")
	a.waitLogs(t, 2)
	b.waitLogs(t, 4)

	a.send("orange", "once")

	if got := b.recvMessage(t); got != "once" {
		t.Errorf("b got %v", got)
	}
	// A second join must not produce a second delivery.
	b.expectNoMessage(t)
}

func TestFIFOPerSender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newTestRelay()
	a := newTestConn(t, ctx, rl, "a")
	b := newTestConn(t, ctx, rl, "b")

	a.join("orange")
	b.join("orange")
	a.waitLogs(t, 2)
	b.waitLogs(t, 2)

	const n = 20
	go func() {
		for i := 0; i < n; i++ {
			a.send("orange", fmt.Sprintf("msg-%02d", i))
		}
	}()

	for i := 0; i < n; i++ {
		want := fmt.Sprintf("msg-%02d", i)
		if got := b.recvMessage(t); got != want {
			t.Fatalf("out of order: got %v, want %v", got, want)
		}
	}
}

func TestMalformedEnvelopesAreDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newTestRelay()
	a := newTestConn(t, ctx, rl, "a")
	b := newTestConn(t, ctx, rl, "b")

	a.join("orange")
	b.join("orange")
	a.waitLogs(t, 2)
	b.waitLogs(t, 2)

	// missing room, missing payload, unknown event
	a.wire.RX <- model.Envelope{Event: model.EventMessage, Message: "no room"}
	a.wire.RX <- model.Envelope{Event: model.EventMessage, Room: "orange"}
	a.wire.RX <- model.Envelope{Event: "presence", Room: "orange"}

	// the connection survives and keeps working
	a.send("orange", "still alive")
	if got := b.recvMessage(t); got != "still alive" {
		t.Errorf("b got %v", got)
	}
}

func TestJoinDiagnosticsAreUnicast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newTestRelay()
	a := newTestConn(t, ctx, rl, "a")
	b := newTestConn(t, ctx, rl, "b")

	a.join("orange")
	a.waitLogs(t, 2)

	// b never joined anything and must not see a's diagnostics
	select {
	case env := <-b.out:
		t.Errorf("b got unexpected envelope: %v", env)
	case <-time.After(100 * time.Millisecond):
	}
}
