package node

import (
	"fmt"
	"strings"
)

// Kind is the immutable category of a node.
type Kind uint8

const (
	KindDON Kind = iota
	KindBYOD
	KindWayruHotspot
)

var kindNames = map[Kind]string{
	KindDON:          "don",
	KindBYOD:         "byod",
	KindWayruHotspot: "wayru_hotspot",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// RequiresDeposit reports whether the owner must lock a deposit. Only
// bring-your-own-device nodes do.
func (k Kind) RequiresDeposit() bool {
	return k == KindBYOD
}

// ParseKind accepts "don", "byod" or "wayru_hotspot", case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
