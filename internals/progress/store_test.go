package progress

import (
	"testing"
	"time"

	"github.com/clipmate/clipmate/internals/schemas"
)

func TestStoreSnapshotsAreImmutable(t *testing.T) {
	s := newTestStore()
	s.Apply(&schemas.ProgressEvent{Kind: schemas.KindStart, TaskID: "auto_edit", Items: []string{"a", "b"}})
	before := mustGet(t, s, "auto_edit")

	s.Apply(&schemas.ProgressEvent{Kind: schemas.KindItemStage, TaskID: "auto_edit", ItemKey: "encode"})
	s.Apply(&schemas.ProgressEvent{Kind: schemas.KindItemFinish, TaskID: "auto_edit"})

	if before.Items[0].Status != schemas.ItemStatusActive {
		t.Fatalf("published snapshot was mutated: %q", before.Items[0].Status)
	}
	if len(before.Items[0].Steps) != 0 {
		t.Fatalf("published snapshot grew steps: %d", len(before.Items[0].Steps))
	}

	after := mustGet(t, s, "auto_edit")
	if after.Items[0].Status != schemas.ItemStatusSuccess {
		t.Fatalf("expected new snapshot to carry the change, got %q", after.Items[0].Status)
	}
}

func TestStoreUnknownKindDropped(t *testing.T) {
	s := newTestStore()
	s.Apply(&schemas.ProgressEvent{Kind: "telemetry", TaskID: "auto_edit"})

	if _, ok := s.Get("auto_edit"); ok {
		t.Fatalf("unknown kind must not materialize a task")
	}
	if s.Revision() != 0 {
		t.Fatalf("unknown kind must not bump the revision, got %d", s.Revision())
	}
}

func TestStoreRevisionIncrements(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 3; i++ {
		s.Apply(&schemas.ProgressEvent{Kind: schemas.KindAdvance, TaskID: "auto_edit"})
	}
	if s.Revision() != 3 {
		t.Fatalf("expected revision 3, got %d", s.Revision())
	}
}

func TestStoreSubscribe(t *testing.T) {
	s := newTestStore()
	ticks, cancel := s.Subscribe()

	s.Apply(&schemas.ProgressEvent{Kind: schemas.KindStart, TaskID: "auto_edit"})
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatalf("expected tick after commit")
	}

	// A lagging subscriber gets coalesced ticks, never a blocked commit.
	s.Apply(&schemas.ProgressEvent{Kind: schemas.KindAdvance, TaskID: "auto_edit"})
	s.Apply(&schemas.ProgressEvent{Kind: schemas.KindAdvance, TaskID: "auto_edit"})
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatalf("expected coalesced tick")
	}

	cancel()
	s.Apply(&schemas.ProgressEvent{Kind: schemas.KindAdvance, TaskID: "auto_edit"})
	select {
	case _, ok := <-ticks:
		if ok {
			t.Fatalf("expected no tick after cancel")
		}
	default:
	}
}
