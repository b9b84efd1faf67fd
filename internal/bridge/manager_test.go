package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/webridge/internal/testutil/testlog"
)

func TestAttachDetachLifecycle(t *testing.T) {
	testlog.Start(t)
	manager := NewSessionManager()
	conn := newFakeConn()
	att := manager.Attach("default", conn)
	if att.ConnID == "" {
		t.Fatalf("attachment missing conn id")
	}
	if manager.Count() != 1 {
		t.Fatalf("count=%d", manager.Count())
	}
	if !manager.Detach(att) {
		t.Fatalf("detach should remove the binding")
	}
	if manager.Count() != 0 {
		t.Fatalf("count=%d after detach", manager.Count())
	}
	if manager.Detach(att) {
		t.Fatalf("second detach must be a no-op")
	}
	if conn.closeCount() == 0 {
		t.Fatalf("detach must close the connection")
	}
}

func TestAttachSupersedesExisting(t *testing.T) {
	testlog.Start(t)
	manager := NewSessionManager()
	first := newFakeConn()
	second := newFakeConn()

	old := manager.Attach("default", first)
	repl := manager.Attach("default", second)
	if manager.Count() != 1 {
		t.Fatalf("count=%d", manager.Count())
	}
	if first.closeCount() == 0 {
		t.Fatalf("superseded connection left open")
	}
	if old.replies.post([]byte(`{}`)) {
		t.Fatalf("superseded mailbox still accepts posts")
	}

	// A stale handle cannot evict the replacement.
	if manager.Detach(old) {
		t.Fatalf("stale handle detached current binding")
	}
	if manager.Count() != 1 {
		t.Fatalf("count=%d after stale detach", manager.Count())
	}

	// Delivery routes to the replacement's mailbox.
	if !manager.Deliver("default", []byte(`{"confirmed":true}`)) {
		t.Fatalf("deliver failed")
	}
	got, err := repl.replies.take(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if string(got) != `{"confirmed":true}` {
		t.Fatalf("payload=%s", got)
	}
}

func TestDeliverUnknownSessionDrops(t *testing.T) {
	testlog.Start(t)
	manager := NewSessionManager()
	if manager.Deliver("nobody", []byte(`{}`)) {
		t.Fatalf("delivered to a session that never attached")
	}
}

func TestShutdownWakesSuspendedTakes(t *testing.T) {
	testlog.Start(t)
	manager := NewSessionManager()
	a := manager.Attach("a", newFakeConn())
	manager.Attach("b", newFakeConn())

	errCh := make(chan error, 1)
	go func() {
		_, err := a.replies.take(context.Background(), 5*time.Second)
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	manager.Shutdown()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSessionClosed) {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("shutdown left waiter suspended")
	}
	if manager.Count() != 0 {
		t.Fatalf("count=%d after shutdown", manager.Count())
	}
}

func TestSnapshotListsAttachedSessions(t *testing.T) {
	testlog.Start(t)
	manager := NewSessionManager()
	manager.Attach("beta", newFakeConn())
	manager.Attach("alpha", newFakeConn())
	manager.Deliver("beta", []byte(`{"confirmed":true}`))

	infos := manager.Snapshot()
	if len(infos) != 2 {
		t.Fatalf("rows=%d", len(infos))
	}
	if infos[0].SessionID != "alpha" || infos[1].SessionID != "beta" {
		t.Fatalf("order: %+v", infos)
	}
	if infos[1].Delivered != 1 || infos[1].Pending != 1 {
		t.Fatalf("beta counters: %+v", infos[1])
	}
	if infos[0].ConnID == "" || infos[0].AttachedAt.IsZero() {
		t.Fatalf("alpha row incomplete: %+v", infos[0])
	}
}
