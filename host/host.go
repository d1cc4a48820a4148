// Package host exposes the list bindings to WebAssembly guests as the
// wazero host module "indexbind".
//
// Handles, positions and lengths are i64. Names and values are passed as
// (ptr, len) pairs in guest memory. Functions that produce a value write it
// to (out_ptr, out_cap) and return its length; when the length exceeds
// out_cap nothing is written and nothing is consumed, so the guest can
// retry with a larger buffer. An out_ptr outside guest memory is a
// conversion failure reported before the list or iterator is touched.
// Negative results are status codes; the message of the calling module's
// last failure is available through last_error.
package host

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/indexbind/binding"
	"github.com/wippyai/indexbind/errors"
	"github.com/wippyai/indexbind/resource"
)

// ModuleName is the import module name guests use.
const ModuleName = "indexbind"

// Status codes returned in place of a result.
const (
	StatusOK                int64 = 0
	StatusAbsent            int64 = -1
	StatusProtocolViolation int64 = -2
	StatusConversion        int64 = -3
	StatusInvalidHandle     int64 = -4
	StatusFault             int64 = -5
	StatusResourceExhausted int64 = -6
	StatusClosed            int64 = -7
)

// Status maps an error to the code a guest sees.
func Status(err error) int64 {
	if err == nil {
		return StatusOK
	}
	switch errors.KindOf(err) {
	case errors.KindProtocolViolation, errors.KindInvalidInput:
		return StatusProtocolViolation
	case errors.KindConversion:
		return StatusConversion
	case errors.KindStaleHandle, errors.KindTypeMismatch:
		return StatusInvalidHandle
	case errors.KindResourceExhausted:
		return StatusResourceExhausted
	case errors.KindClosed:
		return StatusClosed
	default:
		return StatusFault
	}
}

// FuncDef defines one exported host function.
type FuncDef struct {
	Name        string
	Handler     api.GoModuleFunc
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// Module is the host side of the indexbind import module.
type Module struct {
	binding *binding.Binding

	mu      sync.Mutex
	lastErr error
	errs    map[api.Module]error
}

// New returns a host module serving b.
func New(b *binding.Binding) *Module {
	return &Module{binding: b, errs: make(map[api.Module]error)}
}

// Instantiate registers the host module in r.
func (m *Module) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	if r.Module(ModuleName) != nil {
		return nil, errors.Registration(errors.PhaseHost, ModuleName, "*", nil)
	}

	builder := r.NewHostModuleBuilder(ModuleName)
	for _, f := range m.Functions() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.Handler, f.ParamTypes, f.ResultTypes).
			Export(f.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	Logger().Debug("host module instantiated", zap.String("module", ModuleName))
	return mod, nil
}

// LastError returns the most recent failure reported to any guest.
func (m *Module) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// ModuleError returns the most recent failure reported to mod.
func (m *Module) ModuleError(mod api.Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[mod]
}

// Release forgets the failure recorded for mod. Call it when the guest
// module is closed.
func (m *Module) Release(mod api.Module) {
	m.mu.Lock()
	delete(m.errs, mod)
	m.mu.Unlock()
}

func (m *Module) setErr(mod api.Module, err error) {
	m.mu.Lock()
	m.lastErr = err
	m.errs[mod] = err
	m.mu.Unlock()
}

// fail records err for mod and returns its status code.
func (m *Module) fail(mod api.Module, err error) uint64 {
	m.setErr(mod, err)
	Logger().Debug("guest call failed", zap.String("guest", mod.Name()), zap.Error(err))
	return api.EncodeI64(Status(err))
}

func (m *Module) result(mod api.Module, v int64, err error) uint64 {
	if err != nil {
		return m.fail(mod, err)
	}
	return api.EncodeI64(v)
}

func (m *Module) handle(mod api.Module, h resource.Handle, err error) uint64 {
	return m.result(mod, int64(h), err)
}

func (m *Module) status(mod api.Module, err error) uint64 {
	return m.result(mod, StatusOK, err)
}

func (m *Module) boolean(mod api.Module, v bool, err error) uint64 {
	if v {
		return m.result(mod, 1, err)
	}
	return m.result(mod, 0, err)
}

func handleArg(v uint64) resource.Handle {
	return resource.Handle(v)
}

func int64Arg(v uint64) int64 {
	return int64(v)
}

// read copies len bytes at ptr out of guest memory.
func read(mod api.Module, ptr, length uint64) ([]byte, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.Conversion("guest exports no memory", nil)
	}
	data, ok := mem.Read(api.DecodeU32(ptr), api.DecodeU32(length))
	if !ok {
		return nil, errors.New(errors.PhaseConvert, errors.KindConversion).
			Detail("read [%d, +%d) out of guest memory bounds", api.DecodeU32(ptr), api.DecodeU32(length)).
			Build()
	}
	return append([]byte{}, data...), nil
}

// fits checks that n bytes at ptr lie inside guest memory.
func fits(mod api.Module, ptr uint64, n int) error {
	if n == 0 {
		return nil
	}
	mem := mod.Memory()
	if mem == nil {
		return errors.Conversion("guest exports no memory", nil)
	}
	if uint64(api.DecodeU32(ptr))+uint64(n) > uint64(mem.Size()) {
		return errors.New(errors.PhaseConvert, errors.KindConversion).
			Detail("write [%d, +%d) out of guest memory bounds", api.DecodeU32(ptr), n).
			Build()
	}
	return nil
}

// write stores v at ptr. The caller has checked that it fits the buffer.
func write(mod api.Module, ptr uint64, v []byte) error {
	if err := fits(mod, ptr, len(v)); err != nil {
		return err
	}
	if len(v) > 0 && !mod.Memory().Write(api.DecodeU32(ptr), v) {
		return errors.Conversion("write to guest memory failed", nil)
	}
	return nil
}

// reserve reports the code to return without performing the call when a
// value of length n cannot be delivered to (outPtr, outCap): its length
// when the buffer is too small, a conversion failure when the buffer lies
// outside guest memory.
func (m *Module) reserve(mod api.Module, n int, outPtr, outCap uint64) (uint64, bool) {
	if uint64(n) > uint64(api.DecodeU32(outCap)) {
		return api.EncodeI64(int64(n)), true
	}
	if err := fits(mod, outPtr, n); err != nil {
		return m.fail(mod, err), true
	}
	return 0, false
}

// value writes v to (outPtr, outCap) and returns the code for the guest:
// absent for nil, the length otherwise.
func (m *Module) value(mod api.Module, v []byte, err error, outPtr, outCap uint64) uint64 {
	if err != nil {
		return m.fail(mod, err)
	}
	if v == nil {
		return api.EncodeI64(StatusAbsent)
	}
	if code, skip := m.reserve(mod, len(v), outPtr, outCap); skip {
		return code
	}
	if err := write(mod, outPtr, v); err != nil {
		return m.fail(mod, err)
	}
	return api.EncodeI64(int64(len(v)))
}
