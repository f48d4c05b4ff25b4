package callstate

import (
	"testing"
	"time"
)

func mustSnapshot(t *testing.T, ch <-chan *Snapshot, kind EventKind) *Snapshot {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("subscriber closed while waiting for %v", kind)
			}
			if snap.Event == kind {
				return snap
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected snapshot for %v not received", kind)
	return nil
}
