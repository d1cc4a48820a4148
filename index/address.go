package index

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/wippyai/indexbind/errors"
)

const (
	plainFlag byte = 0
	groupFlag byte = 1

	lengthTag  byte = 0
	elementTag byte = 1
)

// Address identifies a list: a name, optionally scoped to a key within the
// group of that name.
type Address struct {
	name  string
	key   []byte
	group bool
}

// NewAddress returns the address of the plain list name.
func NewAddress(name string) (Address, error) {
	if err := ValidateName(name); err != nil {
		return Address{}, err
	}
	return Address{name: name}, nil
}

// InGroup returns the address of the list stored under key in group.
// The key may be empty. A group list never shares storage with the plain
// list of the same name.
func InGroup(group string, key []byte) (Address, error) {
	if err := ValidateName(group); err != nil {
		return Address{}, err
	}
	return Address{name: group, key: append([]byte{}, key...), group: true}, nil
}

// ValidateName reports whether name can name a list or group: non-empty
// UTF-8 made of ASCII letters, digits, '_', '-' and '.'.
func ValidateName(name string) error {
	if name == "" {
		return errors.New(errors.PhaseConvert, errors.KindConversion).
			Path("name").
			Detail("name must not be empty").
			Build()
	}
	if !utf8.ValidString(name) {
		return errors.InvalidUTF8([]string{"name"}, []byte(name))
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '-', c == '.':
		default:
			r, _ := utf8.DecodeRuneInString(name[i:])
			return errors.New(errors.PhaseConvert, errors.KindConversion).
				Path("name").
				Value(name).
				Detail("invalid character %q in name %q", r, name).
				Build()
		}
	}
	return nil
}

func (a Address) Name() string {
	return a.name
}

// Key returns the group key and whether the address is in a group.
func (a Address) Key() ([]byte, bool) {
	return a.key, a.group
}

func (a Address) String() string {
	if a.group {
		return fmt.Sprintf("%s[%x]", a.name, a.key)
	}
	return a.name
}

// prefix is uvarint(len(name)) name flag [uvarint(len(key)) key]. The
// length prefixes keep every prefix from being a prefix of another.
func (a Address) prefix() []byte {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(a.name)+len(a.key)+1)
	buf = binary.AppendUvarint(buf, uint64(len(a.name)))
	buf = append(buf, a.name...)
	if !a.group {
		return append(buf, plainFlag)
	}
	buf = append(buf, groupFlag)
	buf = binary.AppendUvarint(buf, uint64(len(a.key)))
	return append(buf, a.key...)
}
