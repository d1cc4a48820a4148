package binding

import (
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/indexbind/errors"
	"github.com/wippyai/indexbind/resource"
	"github.com/wippyai/indexbind/storage"
)

func newBinding(t *testing.T) *Binding {
	t.Helper()
	return New(resource.NewTable(), zap.NewNop())
}

func must[T any](t *testing.T, v T, err error) T {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func collect(t *testing.T, b *Binding, it resource.Handle) []string {
	t.Helper()
	var out []string
	for {
		v := must(t, b.ListIterNext(it))
		if v == nil {
			return out
		}
		out = append(out, string(v))
	}
}

func TestScenario_ForkList(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))
	list := must(t, b.ListCreate("L", view))

	for _, v := range []string{"a", "b", "c"} {
		check(t, b.ListAdd(list, []byte(v)))
	}

	if got := must(t, b.ListGet(list, 1)); string(got) != "b" {
		t.Fatalf("get(1) = %q, want b", got)
	}
	if got := must(t, b.ListRemoveLast(list)); string(got) != "c" {
		t.Fatalf("remove-last = %q, want c", got)
	}
	if n := must(t, b.ListSize(list)); n != 2 {
		t.Fatalf("size = %d, want 2", n)
	}
	check(t, b.ListTruncate(list, 1))
	if got := must(t, b.ListGet(list, 0)); string(got) != "a" {
		t.Fatalf("get(0) = %q, want a", got)
	}
	if got := must(t, b.ListGet(list, 1)); got != nil {
		t.Fatalf("get(1) = %q, want absent", got)
	}

	it := must(t, b.ListIter(list))
	if got := collect(t, b, it); fmt.Sprint(got) != "[a]" {
		t.Fatalf("iterate = %v, want [a]", got)
	}
	if got := must(t, b.ListIterNext(it)); got != nil {
		t.Fatal("exhausted iterator yielded a value")
	}

	check(t, b.ListIterFree(it))
	check(t, b.ListFree(list))
	check(t, b.DatabaseMerge(db, view))
	check(t, b.ViewFree(view))

	// Snapshot-bound list over the same database after the commit.
	snap := must(t, b.ViewSnapshot(db))
	ro := must(t, b.ListCreate("L", snap))

	err := b.ListAdd(ro, []byte("x"))
	if !errors.IsProtocolViolation(err) {
		t.Fatalf("add on snapshot = %v, want protocol violation", err)
	}
	if got := must(t, b.ListGet(ro, 0)); string(got) != "a" {
		t.Fatalf("get(0) on snapshot = %q, want a", got)
	}

	check(t, b.ListFree(ro))
	check(t, b.ViewFree(snap))
	check(t, b.DatabaseFree(db))

	if b.Table().Len() != 0 {
		t.Fatalf("%d handles leaked", b.Table().Len())
	}
}

func TestSnapshotRejectsEveryMutation(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())

	fork := must(t, b.ViewFork(db))
	l := must(t, b.ListCreate("L", fork))
	check(t, b.ListExtend(l, [][]byte{[]byte("a"), []byte("b")}))
	check(t, b.DatabaseMerge(db, fork))

	snap := must(t, b.ViewSnapshot(db))
	ro := must(t, b.ListCreate("L", snap))

	mutations := []struct {
		name string
		fn   func() error
	}{
		{"add", func() error { return b.ListAdd(ro, []byte("x")) }},
		{"extend", func() error { return b.ListExtend(ro, [][]byte{[]byte("x")}) }},
		{"remove_last", func() error { _, err := b.ListRemoveLast(ro); return err }},
		{"truncate", func() error { return b.ListTruncate(ro, 0) }},
		{"set", func() error { return b.ListSet(ro, 0, []byte("x")) }},
		{"clear", func() error { return b.ListClear(ro) }},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			err := m.fn()
			if !errors.IsProtocolViolation(err) {
				t.Fatalf("got %v, want protocol violation", err)
			}
			var e *errors.Error
			if !errors.As(err, &e) || e.Detail != "unable to modify snapshot" {
				t.Fatalf("unexpected error detail: %v", err)
			}
			if n := must(t, b.ListSize(ro)); n != 2 {
				t.Fatalf("size = %d after rejected %s", n, m.name)
			}
		})
	}

	if d, err := resolve[*storage.Database](b, db, TypeDatabase); err != nil || d.Generation() != 1 {
		t.Fatal("rejected mutations must not reach the database")
	}
}

func TestSetOutOfRange(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))
	l := must(t, b.ListCreate("L", view))
	check(t, b.ListAdd(l, []byte("a")))

	check(t, b.ListSet(l, 0, []byte("A")))
	if got := must(t, b.ListGet(l, 0)); string(got) != "A" {
		t.Fatalf("get(0) = %q", got)
	}

	err := b.ListSet(l, 1, []byte("x"))
	if !errors.IsProtocolViolation(err) {
		t.Fatalf("set(1) = %v, want protocol violation", err)
	}
	var e *errors.Error
	if errors.As(err, &e) && e.Op != "set" {
		t.Fatalf("Op = %q", e.Op)
	}
}

func TestNegativePositions(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))
	l := must(t, b.ListCreate("L", view))
	check(t, b.ListAdd(l, []byte("a")))

	calls := map[string]func() error{
		"get":       func() error { _, err := b.ListGet(l, -1); return err },
		"iter_from": func() error { _, err := b.ListIterFrom(l, -5); return err },
		"truncate":  func() error { return b.ListTruncate(l, -1) },
		"set":       func() error { return b.ListSet(l, -1, []byte("x")) },
	}
	for name, fn := range calls {
		t.Run(name, func(t *testing.T) {
			if err := fn(); !errors.IsConversion(err) {
				t.Fatalf("got %v, want conversion error", err)
			}
		})
	}

	if got := must(t, b.ListGet(l, 0)); string(got) != "a" {
		t.Fatal("rejected call modified the list")
	}
}

func TestInvalidNames(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))

	if _, err := b.ListCreate("", view); !errors.IsConversion(err) {
		t.Fatalf("empty name: %v", err)
	}
	if _, err := b.ListCreate("bad name", view); !errors.IsConversion(err) {
		t.Fatalf("bad name: %v", err)
	}
	if _, err := b.ListCreateInGroup(string([]byte{0xc3}), []byte("k"), view); !errors.IsConversion(err) {
		t.Fatalf("invalid utf-8: %v", err)
	}
	if b.Table().Len() != 2 {
		t.Fatalf("failed creates allocated handles: %d live", b.Table().Len())
	}
}

func TestIterFrom_SnapshotInTime(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))
	l := must(t, b.ListCreate("L", view))
	check(t, b.ListExtend(l, [][]byte{[]byte("a"), []byte("b"), []byte("c")}))

	it := must(t, b.ListIterFrom(l, 1))

	// mutate through a different handle on the same view
	other := must(t, b.ListCreate("L", view))
	check(t, b.ListSet(other, 1, []byte("B")))
	check(t, b.ListAdd(other, []byte("d")))
	check(t, b.ListFree(other))

	if got := must(t, b.ListIterPeek(it)); string(got) != "b" {
		t.Fatalf("peek = %q", got)
	}
	if got := collect(t, b, it); fmt.Sprint(got) != "[b c]" {
		t.Fatalf("iterate-from(1) = %v, want [b c]", got)
	}

	past := must(t, b.ListIterFrom(l, 100))
	if got := must(t, b.ListIterNext(past)); got != nil {
		t.Fatal("iterator past the end yielded a value")
	}
}

func TestGroupLists(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))

	plain := must(t, b.ListCreate("G", view))
	k1 := must(t, b.ListCreateInGroup("G", []byte("k1"), view))
	k2 := must(t, b.ListCreateInGroup("G", []byte("k2"), view))

	check(t, b.ListAdd(plain, []byte("p")))
	check(t, b.ListAdd(k1, []byte("one")))
	check(t, b.ListAdd(k2, []byte("two")))
	check(t, b.ListAdd(k2, []byte("three")))

	tests := []struct {
		h    resource.Handle
		size int64
		last string
	}{
		{plain, 1, "p"},
		{k1, 1, "one"},
		{k2, 2, "three"},
	}
	for i, tt := range tests {
		if n := must(t, b.ListSize(tt.h)); n != tt.size {
			t.Errorf("#%d size = %d, want %d", i, n, tt.size)
		}
		if v := must(t, b.ListGetLast(tt.h)); string(v) != tt.last {
			t.Errorf("#%d last = %q, want %q", i, v, tt.last)
		}
	}

	check(t, b.ListClear(k2))
	if empty := must(t, b.ListIsEmpty(k2)); !empty {
		t.Fatal("k2 not empty after clear")
	}
	if empty := must(t, b.ListIsEmpty(k1)); empty {
		t.Fatal("clear of k2 emptied k1")
	}
}

func TestEmptyValueIsNotAbsent(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))
	l := must(t, b.ListCreate("L", view))

	if v := must(t, b.ListGetLast(l)); v != nil {
		t.Fatal("empty list has a last value")
	}
	if v := must(t, b.ListRemoveLast(l)); v != nil {
		t.Fatal("remove-last on empty list returned a value")
	}

	check(t, b.ListAdd(l, []byte{}))
	v := must(t, b.ListGet(l, 0))
	if v == nil || len(v) != 0 {
		t.Fatalf("get(0) = %v, want empty non-nil", v)
	}
}

func TestHandles(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))
	l := must(t, b.ListCreate("L", view))

	t.Run("wrong type", func(t *testing.T) {
		if _, err := b.ListSize(view); errors.KindOf(err) != errors.KindTypeMismatch {
			t.Fatalf("list op on a view handle: %v", err)
		}
		if err := b.ListIterFree(l); errors.KindOf(err) != errors.KindTypeMismatch {
			t.Fatalf("iter free on a list handle: %v", err)
		}
		if _, err := b.ListSize(l); err != nil {
			t.Fatalf("list handle must stay live after a mismatched free: %v", err)
		}
	})

	t.Run("destroyed", func(t *testing.T) {
		l2 := must(t, b.ListCreate("M", view))
		check(t, b.ListFree(l2))
		if err := b.ListFree(l2); errors.KindOf(err) != errors.KindStaleHandle {
			t.Fatalf("double free: %v", err)
		}
		if _, err := b.ListSize(l); err != nil {
			t.Fatalf("double free disturbed another handle: %v", err)
		}
	})

	t.Run("merge a snapshot", func(t *testing.T) {
		snap := must(t, b.ViewSnapshot(db))
		if err := b.DatabaseMerge(db, snap); !errors.IsProtocolViolation(err) {
			t.Fatalf("merge snapshot: %v", err)
		}
	})

	t.Run("write after merge", func(t *testing.T) {
		check(t, b.DatabaseMerge(db, view))
		if err := b.ListAdd(l, []byte("x")); errors.KindOf(err) != errors.KindClosed {
			t.Fatalf("write to merged fork: %v", err)
		}
	})
}

func TestResourceExhausted(t *testing.T) {
	b := New(resource.NewTable(resource.WithCapacity(2)), zap.NewNop())
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))

	_, err := b.ListCreate("L", view)
	if !errors.IsFatal(err) {
		t.Fatalf("got %v, want resource exhausted", err)
	}
}

func TestGuard_ContainsPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	b := New(resource.NewTable(), zap.New(core))

	err := b.Guard("boom", func() error {
		panic("kaboom")
	})
	if errors.KindOf(err) != errors.KindFault {
		t.Fatalf("got %v, want fault", err)
	}
	if logs.FilterMessage("operation panicked").Len() != 1 {
		t.Fatal("panic was not logged")
	}

	var nilMap map[string]int
	n, err := guard(b, "nil map", func() (int, error) {
		nilMap["x"] = 1
		return 42, nil
	})
	if n != 0 || errors.KindOf(err) != errors.KindFault {
		t.Fatalf("got (%d, %v), want (0, fault)", n, err)
	}
}

func TestGuard_CorruptList(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	view := must(t, b.ViewFork(db))
	l := must(t, b.ListCreate("C", view))

	v := must(t, resolve[storage.View](b, view, TypeView))
	fork, _ := v.Fork()
	// length key of plain list "C": uvarint(1) 'C' plain-flag length-tag
	check(t, fork.Put([]byte{1, 'C', 0, 0}, []byte{0xff}))

	if _, err := b.ListSize(l); errors.KindOf(err) != errors.KindFault {
		t.Fatalf("size of corrupt list: %v", err)
	}
	// the fault does not invalidate the handle
	check(t, b.ListClear(l))
	if n := must(t, b.ListSize(l)); n != 0 {
		t.Fatalf("size after clear = %d", n)
	}
}

func TestLifecycleLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := New(resource.NewTable(), zap.New(core))

	db := must(t, b.DatabaseMemory())
	check(t, b.DatabaseFree(db))

	if logs.FilterMessage("handle created").Len() != 1 {
		t.Fatal("missing created event")
	}
	if logs.FilterMessage("handle dropped").Len() != 1 {
		t.Fatal("missing dropped event")
	}
}

func TestConcurrentSnapshotReads(t *testing.T) {
	b := newBinding(t)
	db := must(t, b.DatabaseMemory())
	fork := must(t, b.ViewFork(db))
	l := must(t, b.ListCreate("L", fork))
	for i := 0; i < 50; i++ {
		check(t, b.ListAdd(l, []byte(fmt.Sprint(i))))
	}
	check(t, b.DatabaseMerge(db, fork))

	snap := must(t, b.ViewSnapshot(db))
	ro := must(t, b.ListCreate("L", snap))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			it, err := b.ListIter(ro)
			if err != nil {
				t.Error(err)
				return
			}
			defer b.ListIterFree(it)
			for i := 0; i < 50; i++ {
				v, err := b.ListIterNext(it)
				if err != nil || string(v) != fmt.Sprint(i) {
					t.Errorf("next #%d = (%q, %v)", i, v, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestPosition(t *testing.T) {
	tests := []struct {
		in      int64
		want    uint64
		wantErr bool
	}{
		{0, 0, false},
		{7, 7, false},
		{1<<63 - 1, 1<<63 - 1, false},
		{-1, 0, true},
		{-1 << 63, 0, true},
	}
	for _, tt := range tests {
		got, err := Position(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Position(%d) = (%d, %v)", tt.in, got, err)
		}
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default must return the same binding")
	}
	if Default().Table() != resource.Default() {
		t.Fatal("Default binding must use the process-wide table")
	}
}
