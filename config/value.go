package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a tri-state camera parameter: unset, AUTO, DEFAULT or an
// explicit number. The original camera configuration files store every
// field as text, so Value marshals to a TOML string.
type Value struct {
	state valueState
	num   float64
}

type valueState int

const (
	valueUnset valueState = iota
	valueAuto
	valueDefault
	valueExplicit
)

const (
	autoWord    = "auto"
	defaultWord = "default"
)

func Auto() Value {
	return Value{state: valueAuto}
}

func Default() Value {
	return Value{state: valueDefault}
}

func Number(n float64) Value {
	return Value{state: valueExplicit, num: n}
}

func Int(n int) Value {
	return Number(float64(n))
}

func (v Value) IsSet() bool {
	return v.state != valueUnset
}

func (v Value) IsAuto() bool {
	return v.state == valueAuto
}

func (v Value) IsDefault() bool {
	return v.state == valueDefault
}

func (v Value) IsExplicit() bool {
	return v.state == valueExplicit
}

// Float returns the explicit number, or false when the value is unset,
// AUTO or DEFAULT.
func (v Value) Float() (float64, bool) {
	return v.num, v.state == valueExplicit
}

func (v Value) Int() (int, bool) {
	return int(v.num), v.state == valueExplicit
}

// Or returns the explicit number, falling back when there is none.
func (v Value) Or(fallback float64) float64 {
	if v.state == valueExplicit {
		return v.num
	}
	return fallback
}

func (v Value) String() string {
	switch v.state {
	case valueAuto:
		return autoWord
	case valueDefault:
		return defaultWord
	case valueExplicit:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return ""
}

// Normalized maps unset and DEFAULT to AUTO, the form used when saving
// parameters back to a file.
func (v Value) Normalized() Value {
	if v.state == valueExplicit {
		return v
	}
	return Auto()
}

func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.Normalized().String()), nil
}

func (v *Value) UnmarshalText(text []byte) error {
	parsed, err := ParseValue(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue parses "auto", "default", "" (AUTO) or a number.
func ParseValue(s string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", autoWord:
		return Auto(), nil
	case defaultWord:
		return Default(), nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: not a number: %q", ErrConfig, s)
	}
	return Number(n), nil
}
