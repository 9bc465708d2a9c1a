package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSortByPriorityStable(t *testing.T) {
	in := []Record{
		{ID: "A", Priority: 3},
		{ID: "B", Priority: 1},
		{ID: "C", Priority: 2},
		{ID: "D", Priority: 1},
	}
	out := SortByPriority(in)
	got := ""
	for _, r := range out {
		got += r.ID
	}
	if got != "BDCA" {
		t.Fatalf("order %s", got)
	}
	if in[0].ID != "A" {
		t.Fatalf("input mutated")
	}
	if empty := SortByPriority(nil); empty == nil || len(empty) != 0 {
		t.Fatalf("nil input should yield empty slice")
	}
}

func TestIndexOfAndClone(t *testing.T) {
	in := []Record{{ID: "a"}, {ID: "b"}}
	if IndexOf(in, "b") != 1 || IndexOf(in, "z") != -1 {
		t.Fatalf("IndexOf mismatch")
	}
	cp := CloneRecords(in)
	cp[0].ID = "changed"
	if in[0].ID != "a" {
		t.Fatalf("clone shares backing array")
	}
}

func TestErrorKinds(t *testing.T) {
	nf := NotFoundError{Collection: "todos", ID: "x"}
	if nf.Error() != "todos x not found" || !IsNotFound(fmt.Errorf("wrap: %w", nf)) {
		t.Fatalf("not found error mismatch: %v", nf)
	}
	cause := errors.New("disk full")
	se := StorageError{Op: "save todos", Err: cause}
	if !errors.Is(se, cause) || !IsStorage(fmt.Errorf("wrap: %w", se)) || se.Error() != "save todos: disk full" {
		t.Fatalf("storage error mismatch: %v", se)
	}
	if (StorageError{Op: "load"}).Error() != "load: storage failure" {
		t.Fatalf("nil cause message")
	}
	if IsValidation(se) || IsNotFound(se) || IsStorage(nf) {
		t.Fatalf("error kinds overlap")
	}
}
