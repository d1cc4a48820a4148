package main

import (
	"fmt"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/wippyai/indexbind/binding"
	"github.com/wippyai/indexbind/configuration"
	"github.com/wippyai/indexbind/errors"
	"github.com/wippyai/indexbind/resource"
)

var writeOps = map[string]bool{
	"add":      true,
	"pop":      true,
	"truncate": true,
	"set":      true,
	"clear":    true,
}

type dump struct {
	List   string   `json:"list"`
	Group  string   `json:"group,omitempty"`
	Key    string   `json:"key,omitempty"`
	Size   int64    `json:"size"`
	Values []string `json:"values"`
}

// run applies one operation to the list named by c. Writes go to a fork
// that is merged only when the operation succeeds.
func run(c *configuration.Configuration, b *binding.Binding) error {
	if c.List == "" && c.Group == "" {
		return errors.InvalidInput(errors.PhaseConfig, "missing -list or -group")
	}

	db, err := b.DatabaseOpen(c)
	if err != nil {
		return err
	}
	defer b.DatabaseFree(db)

	write := writeOps[c.Op]
	var view resource.Handle
	if write {
		view, err = b.ViewFork(db)
	} else {
		view, err = b.ViewSnapshot(db)
	}
	if err != nil {
		return err
	}
	defer b.ViewFree(view)

	var list resource.Handle
	if c.Group != "" {
		list, err = b.ListCreateInGroup(c.Group, []byte(c.Key), view)
	} else {
		list, err = b.ListCreate(c.List, view)
	}
	if err != nil {
		return err
	}
	defer b.ListFree(list)

	if err := apply(c, b, list); err != nil {
		return err
	}
	if write {
		return b.DatabaseMerge(db, view)
	}
	return nil
}

func apply(c *configuration.Configuration, b *binding.Binding, list resource.Handle) error {
	switch c.Op {
	case "get":
		v, err := b.ListGet(list, c.Pos)
		return printValue(v, err)
	case "last":
		v, err := b.ListGetLast(list)
		return printValue(v, err)
	case "pop":
		v, err := b.ListRemoveLast(list)
		return printValue(v, err)
	case "size":
		n, err := b.ListSize(list)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	case "add":
		return b.ListAdd(list, []byte(c.Value))
	case "truncate":
		return b.ListTruncate(list, c.Pos)
	case "set":
		return b.ListSet(list, c.Pos, []byte(c.Value))
	case "clear":
		return b.ListClear(list)
	case "dump":
		d, err := collect(c, b, list)
		if err != nil {
			return err
		}
		if err := json.MarshalWrite(os.Stdout, d, jsontext.WithIndent("    "), jsontext.AllowInvalidUTF8(true)); err != nil {
			return err
		}
		fmt.Println()
		return nil
	default:
		return errors.NotFound(errors.PhaseConfig, "operation", c.Op)
	}
}

func printValue(v []byte, err error) error {
	if err != nil {
		return err
	}
	if v == nil {
		fmt.Fprintln(os.Stderr, "(absent)")
		return nil
	}
	fmt.Println(string(v))
	return nil
}

func collect(c *configuration.Configuration, b *binding.Binding, list resource.Handle) (*dump, error) {
	d := &dump{List: c.List, Group: c.Group, Key: c.Key, Values: []string{}}
	if c.Group != "" {
		d.List = ""
	}

	size, err := b.ListSize(list)
	if err != nil {
		return nil, err
	}
	d.Size = size

	it, err := b.ListIter(list)
	if err != nil {
		return nil, err
	}
	defer b.ListIterFree(it)

	for {
		v, err := b.ListIterNext(it)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return d, nil
		}
		d.Values = append(d.Values, string(v))
	}
}
