package main

import (
	"path/filepath"
	"testing"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/indexbind/binding"
	"github.com/wippyai/indexbind/configuration"
	"github.com/wippyai/indexbind/errors"
	"github.com/wippyai/indexbind/resource"
)

func newBinding() *binding.Binding {
	return binding.New(resource.NewTable(), zap.NewNop())
}

func script(t *testing.T, path string, mutate func(c *configuration.Configuration)) error {
	t.Helper()
	c := configuration.Default()
	c.StoragePath = path
	c.List = "events"
	mutate(&c)
	return run(&c, newBinding())
}

func TestRun_PersistsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")

	for _, v := range []string{"a", "b", "c"} {
		if err := script(t, path, func(c *configuration.Configuration) { c.Op = "add"; c.Value = v }); err != nil {
			t.Fatalf("add %s: %v", v, err)
		}
	}
	if err := script(t, path, func(c *configuration.Configuration) { c.Op = "pop" }); err != nil {
		t.Fatalf("pop: %v", err)
	}
	if err := script(t, path, func(c *configuration.Configuration) { c.Op = "set"; c.Pos = 0; c.Value = "z" }); err != nil {
		t.Fatalf("set: %v", err)
	}

	c := configuration.Default()
	c.StoragePath = path
	b := newBinding()
	db, err := b.DatabaseOpen(&c)
	if err != nil {
		t.Fatal(err)
	}
	defer b.DatabaseFree(db)
	snap, _ := b.ViewSnapshot(db)
	list, _ := b.ListCreate("events", snap)

	d, err := collect(&configuration.Configuration{List: "events"}, b, list)
	if err != nil {
		t.Fatal(err)
	}
	if d.Size != 2 || d.Values[0] != "z" || d.Values[1] != "b" {
		t.Fatalf("dump = %+v", d)
	}
}

func TestRun_FailedWriteIsNotMerged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")

	if err := script(t, path, func(c *configuration.Configuration) { c.Op = "add"; c.Value = "a" }); err != nil {
		t.Fatal(err)
	}
	err := script(t, path, func(c *configuration.Configuration) { c.Op = "set"; c.Pos = 9; c.Value = "x" })
	if !errors.IsProtocolViolation(err) {
		t.Fatalf("set out of range = %v", err)
	}
	err = script(t, path, func(c *configuration.Configuration) { c.Op = "truncate"; c.Pos = -1 })
	if !errors.IsConversion(err) {
		t.Fatalf("negative truncate = %v", err)
	}
	if err := script(t, path, func(c *configuration.Configuration) { c.Op = "size" }); err != nil {
		t.Fatal(err)
	}
}

func TestRun_Errors(t *testing.T) {
	err := script(t, "", func(c *configuration.Configuration) { c.Op = "rename" })
	if errors.KindOf(err) != errors.KindNotFound {
		t.Fatalf("unknown op = %v", err)
	}

	err = script(t, "", func(c *configuration.Configuration) { c.List = "" })
	if errors.KindOf(err) != errors.KindInvalidInput {
		t.Fatalf("missing list = %v", err)
	}

	err = script(t, "", func(c *configuration.Configuration) { c.List = "bad name!" })
	if !errors.IsConversion(err) {
		t.Fatalf("bad name = %v", err)
	}
}

func TestRun_GroupDump(t *testing.T) {
	err := script(t, "", func(c *configuration.Configuration) {
		c.List = ""
		c.Group = "by_user"
		c.Key = "alice"
		c.Op = "dump"
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEntryPoints(t *testing.T) {
	b := newBinding()
	db, err := b.DatabaseMemory()
	if err != nil {
		t.Fatal(err)
	}

	calls := map[string]entryPoint{}
	for _, e := range entryPoints() {
		calls[e.name] = e
	}

	call := func(name string, args ...any) any {
		t.Helper()
		v, err := calls[name].call(b, args)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return v
	}

	fork := call("view-fork", int64(db)).(resource.Handle)
	list := call("list-create", "events", int64(fork)).(resource.Handle)
	call("list-add", int64(list), "hello")
	if got := call("list-get", int64(list), int64(0)); got != `"hello"` {
		t.Fatalf("list-get = %v", got)
	}
	if got := call("list-get", int64(list), int64(3)); got != "none" {
		t.Fatalf("list-get past end = %v", got)
	}
	call("merge", int64(db), int64(fork))
	call("free", int64(list))
	call("free", int64(fork))

	if b.Table().Len() != 1 {
		t.Fatalf("live handles = %d, want 1", b.Table().Len())
	}
}

func TestConvertArg(t *testing.T) {
	v, err := convertArg(" 42 ", wit.S64{})
	if err != nil || v.(int64) != 42 {
		t.Fatalf("convertArg = %v, %v", v, err)
	}
	if _, err := convertArg("x", wit.S64{}); err == nil {
		t.Fatal("expected parse error")
	}
	if v, _ := convertArg("true", wit.Bool{}); v != true {
		t.Fatalf("bool = %v", v)
	}
}

func TestWitTypeStr(t *testing.T) {
	tests := []struct {
		typ  wit.Type
		want string
	}{
		{wit.S64{}, "s64"},
		{wit.String{}, "string"},
		{wit.Bool{}, "bool"},
		{valueType, "option<string>"},
	}
	for _, tt := range tests {
		if got := witTypeStr(tt.typ); got != tt.want {
			t.Errorf("witTypeStr = %q, want %q", got, tt.want)
		}
	}
}
