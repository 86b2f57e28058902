package model

import (
	"fmt"
	"sort"
)

// ActionKind names the reason a DirectoryAction was recorded.
type ActionKind string

const (
	ActionScanned  ActionKind = "scanned"
	ActionAdded    ActionKind = "added"
	ActionRemoved  ActionKind = "removed"
	ActionModified ActionKind = "modified"
	ActionMoved    ActionKind = "moved" // reserved; decoded but never emitted
	ActionMissing  ActionKind = "missing"
	ActionVanished ActionKind = "vanished"
)

// AllActionKinds lists every kind in default-code order.
var AllActionKinds = []ActionKind{
	ActionScanned,
	ActionAdded,
	ActionRemoved,
	ActionModified,
	ActionMoved,
	ActionMissing,
	ActionVanished,
}

// DefaultActionCodes is the integer encoding used when none is configured.
// Code 0 matches the single "cache dates" action of the first schema version.
var DefaultActionCodes = map[ActionKind]int{
	ActionScanned:  0,
	ActionAdded:    1,
	ActionRemoved:  2,
	ActionModified: 3,
	ActionMoved:    4,
	ActionMissing:  5,
	ActionVanished: 6,
}

// ActionCodec maps ActionKind values to the integers stored in
// dir_actions_log.action_type and back.
type ActionCodec struct {
	toCode map[ActionKind]int
	toKind map[int]ActionKind
}

// NewActionCodec builds a codec from the defaults with the given overrides
// applied. Override keys are kind names; unknown names, negative codes and
// codes shared by two kinds are rejected.
func NewActionCodec(overrides map[string]int) (*ActionCodec, error) {
	c := &ActionCodec{
		toCode: make(map[ActionKind]int, len(AllActionKinds)),
		toKind: make(map[int]ActionKind, len(AllActionKinds)),
	}
	for k, v := range DefaultActionCodes {
		c.toCode[k] = v
	}

	// Sorted for deterministic error messages.
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind := ActionKind(name)
		if _, ok := c.toCode[kind]; !ok {
			return nil, fmt.Errorf("unknown action kind %q", name)
		}
		code := overrides[name]
		if code < 0 {
			return nil, fmt.Errorf("action kind %q: negative code %d", name, code)
		}
		c.toCode[kind] = code
	}

	for _, kind := range AllActionKinds {
		code := c.toCode[kind]
		if other, dup := c.toKind[code]; dup {
			return nil, fmt.Errorf("action code %d assigned to both %q and %q", code, other, kind)
		}
		c.toKind[code] = kind
	}

	return c, nil
}

// DefaultActionCodec returns a codec using DefaultActionCodes.
func DefaultActionCodec() *ActionCodec {
	c, err := NewActionCodec(nil)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the stored integer for kind.
func (c *ActionCodec) Code(kind ActionKind) (int, error) {
	code, ok := c.toCode[kind]
	if !ok {
		return 0, fmt.Errorf("unknown action kind %q", kind)
	}
	return code, nil
}

// Kind returns the ActionKind stored as code.
func (c *ActionCodec) Kind(code int) (ActionKind, error) {
	kind, ok := c.toKind[code]
	if !ok {
		return "", fmt.Errorf("unknown action code %d", code)
	}
	return kind, nil
}
