package state

import (
	"context"
	"reflect"
	"testing"
)

func TestAccessorDefaultRecord(t *testing.T) {
	a := NewAccessor(NewMemoryStore(), "inst-1")

	rec, err := a.Get(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	want := Record{Subjects: []string{}}
	if !reflect.DeepEqual(want, rec) {
		t.Fatalf("unexpected default record: %+v", rec)
	}
}

func TestAccessorStagedWritesVisibleBeforeSave(t *testing.T) {
	store := NewMemoryStore()
	a := NewAccessor(store, "inst-1")

	staged := Record{Loaded: true, Subjects: []string{"billing"}}
	if err := a.Set(context.Background(), "conv-1", staged); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	rec, err := a.Get(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reflect.DeepEqual(staged, rec) {
		t.Fatalf("staged record not visible: %+v", rec)
	}

	// Nothing reaches the store until SaveChanges.
	if _, found, err := store.Get(context.Background(), "inst-1", "conv-1"); err != nil || found {
		t.Fatalf("expected no stored record, found=%v err=%v", found, err)
	}
}

func TestAccessorSaveChangesFlushes(t *testing.T) {
	store := NewMemoryStore()
	a := NewAccessor(store, "inst-1")

	staged := Record{Loaded: true, DialogStack: []Frame{{DialogID: "/ask", StepIndex: 1}}}
	if err := a.Set(context.Background(), "conv-1", staged); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := a.SaveChanges(context.Background(), "conv-1"); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	stored, found, err := store.Get(context.Background(), "inst-1", "conv-1")
	if err != nil {
		t.Fatalf("store get failed: %v", err)
	}
	if !found {
		t.Fatalf("expected stored record after save")
	}
	if !reflect.DeepEqual(staged, stored) {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestAccessorDiscardDropsStaged(t *testing.T) {
	store := NewMemoryStore()
	a := NewAccessor(store, "inst-1")

	if err := a.Set(context.Background(), "conv-1", Record{Loaded: true}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	a.Discard("conv-1")

	if err := a.SaveChanges(context.Background(), "conv-1"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, found, err := store.Get(context.Background(), "inst-1", "conv-1"); err != nil || found {
		t.Fatalf("discarded record was persisted, found=%v err=%v", found, err)
	}
}

func TestAccessorSaveWithoutStagedIsNoop(t *testing.T) {
	a := NewAccessor(NewMemoryStore(), "inst-1")
	if err := a.SaveChanges(context.Background(), "conv-1"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
}
