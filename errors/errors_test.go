package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseIndex,
				Kind:   KindProtocolViolation,
				Op:     "set",
				Path:   []string{"list", "position"},
				Detail: "index 4 out of bounds",
			},
			contains: []string{"[index]", "protocol_violation", "in set", "list.position", "index 4 out of bounds"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseHandle,
				Kind:  KindStaleHandle,
			},
			contains: []string{"[handle]", "stale_handle"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseStorage,
				Kind:   KindIO,
				Detail: "commit",
				Cause:  errors.New("disk full"),
			},
			contains: []string{"[storage]", "io", "commit", "caused by", "disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseConvert,
		Kind:  KindConversion,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := ReadOnly("add")

	if !err.Is(&Error{Phase: PhaseIndex, Kind: KindProtocolViolation}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseHandle, Kind: KindProtocolViolation}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseIndex, Kind: KindConversion}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("call failed: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseIndex, Kind: KindProtocolViolation}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseIndex, KindProtocolViolation).
		Op("truncate").
		Path("list", "length").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "fork", "snapshot").
		Build()

	if err.Phase != PhaseIndex {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseIndex)
	}
	if err.Kind != KindProtocolViolation {
		t.Errorf("Kind = %v, want %v", err.Kind, KindProtocolViolation)
	}
	if err.Op != "truncate" {
		t.Errorf("Op = %v, want truncate", err.Op)
	}
	if len(err.Path) != 2 || err.Path[0] != "list" || err.Path[1] != "length" {
		t.Errorf("Path = %v, want [list length]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected fork, got snapshot" {
		t.Errorf("Detail = %v, want 'expected fork, got snapshot'", err.Detail)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		protocol   bool
		conversion bool
		fatal      bool
	}{
		{"read only", ReadOnly("clear"), true, false, false},
		{"out of bounds", OutOfBounds(PhaseIndex, nil, 3, 2), true, false, false},
		{"negative", NegativeValue("position", -1), false, true, false},
		{"utf8", InvalidUTF8([]string{"name"}, []byte{0xff}), false, true, false},
		{"exhausted", ResourceExhausted(8), false, false, true},
		{"stale", StaleHandle(7), false, false, false},
		{"wrapped", fmt.Errorf("outer: %w", ReadOnly("set")), true, false, false},
		{"plain", errors.New("plain"), false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProtocolViolation(tt.err); got != tt.protocol {
				t.Errorf("IsProtocolViolation = %v, want %v", got, tt.protocol)
			}
			if got := IsConversion(tt.err); got != tt.conversion {
				t.Errorf("IsConversion = %v, want %v", got, tt.conversion)
			}
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseIndex, []string{"list"}, 10, 5)
		if err.Kind != KindProtocolViolation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindProtocolViolation)
		}
		if err.Value != uint64(10) {
			t.Errorf("Value = %v, want 10", err.Value)
		}
		if !strings.Contains(err.Detail, "length 5") {
			t.Errorf("Detail = %v, should contain length", err.Detail)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		data := make([]byte, 64)
		data[0] = 0xff
		err := InvalidUTF8([]string{"name"}, data)
		if err.Kind != KindConversion {
			t.Errorf("Kind = %v, want %v", err.Kind, KindConversion)
		}
		// preview is capped at 32 bytes
		if len(err.Detail) > len("invalid UTF-8 sequence: ")+64 {
			t.Errorf("Detail too long: %q", err.Detail)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(0x100000001, 3, 2)
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if !strings.Contains(err.Detail, "type 2, want 3") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Fault with error", func(t *testing.T) {
		cause := errors.New("boom")
		err := Fault("add", cause)
		if err.Kind != KindFault {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFault)
		}
		if !errors.Is(err, cause) {
			t.Error("Fault should wrap a recovered error")
		}
	})

	t.Run("Fault with value", func(t *testing.T) {
		err := Fault("add", "index out of range")
		if err.Cause != nil {
			t.Error("Fault of a non-error value should have no cause")
		}
		if !strings.Contains(err.Error(), "panic: index out of range") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("Closed", func(t *testing.T) {
		err := Closed(PhaseStorage, "fork")
		if err.Kind != KindClosed || err.Detail != "fork is closed" {
			t.Errorf("got %v", err)
		}
	})

	t.Run("Registration", func(t *testing.T) {
		cause := errors.New("duplicate")
		err := Registration(PhaseHost, "indexbind", "list_get", cause)
		if err.Kind != KindRegistration {
			t.Errorf("Kind = %v, want %v", err.Kind, KindRegistration)
		}
		if !strings.Contains(err.Error(), "indexbind#list_get") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("inner")
		err := Wrap(PhaseConfig, KindInvalidInput, cause, "load")
		if err.Unwrap() != cause {
			t.Error("Wrap should keep cause")
		}
	})
}
