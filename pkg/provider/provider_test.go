package provider

import (
	"context"
	"testing"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
)

type nopDriver struct{ driver.Driver }

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("fdp-storage"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestFSHandleSetsCurrentMount(t *testing.T) {
	b := NewBase("local", KindBlob, nopDriver{})

	if _, ok := b.CurrentMount(); ok {
		t.Fatal("expected no current mount before FSHandle")
	}

	m := driver.Mount{Name: "photos", Path: "/"}
	h := b.FSHandle(context.Background(), m)
	if h.Mount() != m {
		t.Errorf("expected handle on %v, got %v", m, h.Mount())
	}
	cur, ok := b.CurrentMount()
	if !ok || cur != m {
		t.Errorf("expected current mount %v, got %v", m, cur)
	}
}

func TestFSHandlePublishesMountChange(t *testing.T) {
	b := NewBase("pods", KindFairOS, nopDriver{})

	var order []string
	var changes []MountChange
	b.SetMountHook(func(ctx context.Context, c MountChange) {
		order = append(order, "hook")
	})
	sub := b.OnMount().Subscribe(func(c MountChange) {
		order = append(order, "event")
		changes = append(changes, c)
	})
	defer sub.Unsubscribe()

	first := driver.Mount{Name: "a", Path: "/"}
	second := driver.Mount{Name: "b", Path: "/"}
	b.FSHandle(context.Background(), first)
	b.FSHandle(context.Background(), second)

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].HasPrevious || changes[0].Current != first {
		t.Errorf("unexpected first change %+v", changes[0])
	}
	if !changes[1].HasPrevious || changes[1].Previous != first || changes[1].Current != second {
		t.Errorf("unexpected second change %+v", changes[1])
	}
	if len(order) != 4 || order[0] != "hook" || order[1] != "event" {
		t.Errorf("expected hook before event, got %v", order)
	}
}

func TestTransferReturnsFreshOrchestrator(t *testing.T) {
	b := NewBase("x", KindS3, nopDriver{})
	if b.Transfer() == b.Transfer() {
		t.Error("expected a new orchestrator per call")
	}
}
