package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

func params(types ...api.ValueType) []api.ValueType { return types }

// Functions returns every function the host module exports.
func (m *Module) Functions() []FuncDef {
	one := params(i64)
	return []FuncDef{
		{"db_memory", m.dbMemory, nil, one},
		{"db_merge", m.dbMerge, params(i64, i64), one},
		{"db_free", m.dbFree, params(i64), one},
		{"view_snapshot", m.viewSnapshot, params(i64), one},
		{"view_fork", m.viewFork, params(i64), one},
		{"view_free", m.viewFree, params(i64), one},
		{"list_create", m.listCreate, params(i32, i32, i64), one},
		{"list_create_in_group", m.listCreateInGroup, params(i32, i32, i32, i32, i64), one},
		{"list_free", m.listFree, params(i64), one},
		{"list_get", m.listGet, params(i64, i64, i32, i32), one},
		{"list_get_last", m.listGetLast, params(i64, i32, i32), one},
		{"list_is_empty", m.listIsEmpty, params(i64), one},
		{"list_size", m.listSize, params(i64), one},
		{"list_iter", m.listIter, params(i64), one},
		{"list_iter_from", m.listIterFrom, params(i64, i64), one},
		{"list_add", m.listAdd, params(i64, i32, i32), one},
		{"list_remove_last", m.listRemoveLast, params(i64, i32, i32), one},
		{"list_truncate", m.listTruncate, params(i64, i64), one},
		{"list_set", m.listSet, params(i64, i64, i32, i32), one},
		{"list_clear", m.listClear, params(i64), one},
		{"list_iter_next", m.listIterNext, params(i64, i32, i32), one},
		{"list_iter_free", m.listIterFree, params(i64), one},
		{"last_error", m.lastError, params(i32, i32), one},
	}
}

// () -> db
func (m *Module) dbMemory(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.handle(mod, m.binding.DatabaseMemory())
}

// (db, view) -> status
func (m *Module) dbMerge(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.status(mod, m.binding.DatabaseMerge(handleArg(stack[0]), handleArg(stack[1])))
}

// (db) -> status
func (m *Module) dbFree(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.status(mod, m.binding.DatabaseFree(handleArg(stack[0])))
}

func (m *Module) viewSnapshot(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.handle(mod, m.binding.ViewSnapshot(handleArg(stack[0])))
}

func (m *Module) viewFork(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.handle(mod, m.binding.ViewFork(handleArg(stack[0])))
}

func (m *Module) viewFree(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.status(mod, m.binding.ViewFree(handleArg(stack[0])))
}

// (name_ptr, name_len, view) -> list
func (m *Module) listCreate(_ context.Context, mod api.Module, stack []uint64) {
	name, err := read(mod, stack[0], stack[1])
	if err != nil {
		stack[0] = m.fail(mod, err)
		return
	}
	stack[0] = m.handle(mod, m.binding.ListCreate(string(name), handleArg(stack[2])))
}

// (group_ptr, group_len, key_ptr, key_len, view) -> list
func (m *Module) listCreateInGroup(_ context.Context, mod api.Module, stack []uint64) {
	group, err := read(mod, stack[0], stack[1])
	if err != nil {
		stack[0] = m.fail(mod, err)
		return
	}
	key, err := read(mod, stack[2], stack[3])
	if err != nil {
		stack[0] = m.fail(mod, err)
		return
	}
	stack[0] = m.handle(mod, m.binding.ListCreateInGroup(string(group), key, handleArg(stack[4])))
}

func (m *Module) listFree(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.status(mod, m.binding.ListFree(handleArg(stack[0])))
}

// (list, pos, out_ptr, out_cap) -> len | absent
func (m *Module) listGet(_ context.Context, mod api.Module, stack []uint64) {
	v, err := m.binding.ListGet(handleArg(stack[0]), int64Arg(stack[1]))
	stack[0] = m.value(mod, v, err, stack[2], stack[3])
}

// (list, out_ptr, out_cap) -> len | absent
func (m *Module) listGetLast(_ context.Context, mod api.Module, stack []uint64) {
	v, err := m.binding.ListGetLast(handleArg(stack[0]))
	stack[0] = m.value(mod, v, err, stack[1], stack[2])
}

func (m *Module) listIsEmpty(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.boolean(mod, m.binding.ListIsEmpty(handleArg(stack[0])))
}

func (m *Module) listSize(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.result(mod, m.binding.ListSize(handleArg(stack[0])))
}

func (m *Module) listIter(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.handle(mod, m.binding.ListIter(handleArg(stack[0])))
}

// (list, from) -> iterator
func (m *Module) listIterFrom(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.handle(mod, m.binding.ListIterFrom(handleArg(stack[0]), int64Arg(stack[1])))
}

// (list, ptr, len) -> status
func (m *Module) listAdd(_ context.Context, mod api.Module, stack []uint64) {
	v, err := read(mod, stack[1], stack[2])
	if err != nil {
		stack[0] = m.fail(mod, err)
		return
	}
	stack[0] = m.status(mod, m.binding.ListAdd(handleArg(stack[0]), v))
}

// (list, out_ptr, out_cap) -> len | absent. A value that cannot be
// delivered is left in the list.
func (m *Module) listRemoveLast(_ context.Context, mod api.Module, stack []uint64) {
	list := handleArg(stack[0])
	last, err := m.binding.ListGetLast(list)
	if err != nil {
		stack[0] = m.fail(mod, err)
		return
	}
	if code, skip := m.reserve(mod, len(last), stack[1], stack[2]); skip {
		stack[0] = code
		return
	}
	v, err := m.binding.ListRemoveLast(list)
	stack[0] = m.value(mod, v, err, stack[1], stack[2])
}

// (list, len) -> status
func (m *Module) listTruncate(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.status(mod, m.binding.ListTruncate(handleArg(stack[0]), int64Arg(stack[1])))
}

// (list, pos, ptr, len) -> status
func (m *Module) listSet(_ context.Context, mod api.Module, stack []uint64) {
	v, err := read(mod, stack[2], stack[3])
	if err != nil {
		stack[0] = m.fail(mod, err)
		return
	}
	stack[0] = m.status(mod, m.binding.ListSet(handleArg(stack[0]), int64Arg(stack[1]), v))
}

func (m *Module) listClear(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.status(mod, m.binding.ListClear(handleArg(stack[0])))
}

// (iterator, out_ptr, out_cap) -> len | absent. A value that cannot be
// delivered is not consumed.
func (m *Module) listIterNext(_ context.Context, mod api.Module, stack []uint64) {
	it := handleArg(stack[0])
	next, err := m.binding.ListIterPeek(it)
	if err != nil {
		stack[0] = m.fail(mod, err)
		return
	}
	if next == nil {
		stack[0] = api.EncodeI64(StatusAbsent)
		return
	}
	if code, skip := m.reserve(mod, len(next), stack[1], stack[2]); skip {
		stack[0] = code
		return
	}
	v, err := m.binding.ListIterNext(it)
	stack[0] = m.value(mod, v, err, stack[1], stack[2])
}

func (m *Module) listIterFree(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = m.status(mod, m.binding.ListIterFree(handleArg(stack[0])))
}

// (out_ptr, out_cap) -> len | absent. Reports the last failure of the
// calling module only.
func (m *Module) lastError(_ context.Context, mod api.Module, stack []uint64) {
	err := m.ModuleError(mod)
	if err == nil {
		stack[0] = api.EncodeI64(StatusAbsent)
		return
	}
	msg := []byte(err.Error())
	if uint64(len(msg)) > uint64(api.DecodeU32(stack[1])) {
		stack[0] = api.EncodeI64(int64(len(msg)))
		return
	}
	if werr := write(mod, stack[0], msg); werr != nil {
		stack[0] = api.EncodeI64(Status(werr))
		return
	}
	stack[0] = api.EncodeI64(int64(len(msg)))
}
