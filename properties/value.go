package properties

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Kind identifies the active member of a Value.
type Kind uint8

const (
	Bool Kind = iota + 1
	Int
	Float
	String
	ColorKind
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case ColorKind:
		return "color"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Color is a non-premultiplied 8-bit ARGB color as written by Tiled.
type Color struct {
	A, R, G, B uint8
}

// Black is used when a color literal cannot be parsed.
var Black = Color{A: 0xff}

// ColorFromARGB unpacks 0xAARRGGBB.
func ColorFromARGB(argb uint32) Color {
	return Color{
		A: uint8(argb >> 24),
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
	}
}

// ParseColor parses "#AARRGGBB". Malformed input yields opaque black.
func ParseColor(s string) Color {
	s = strings.TrimPrefix(s, "#")
	argb, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		argb = 0xff000000
	}
	return ColorFromARGB(uint32(argb))
}

func (c Color) ARGB() uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

func (c Color) String() string {
	return fmt.Sprintf("#%08x", c.ARGB())
}

// Value holds exactly one of bool, int32, float32, string or Color.
type Value struct {
	kind Kind
	b    bool
	i    int32
	f    float32
	s    string
	c    Color
}

func BoolValue(v bool) Value     { return Value{kind: Bool, b: v} }
func IntValue(v int32) Value     { return Value{kind: Int, i: v} }
func FloatValue(v float32) Value { return Value{kind: Float, f: v} }
func StringValue(v string) Value { return Value{kind: String, s: v} }
func ColorValue(v Color) Value   { return Value{kind: ColorKind, c: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) String() string {
	switch v.kind {
	case Bool:
		return strconv.FormatBool(v.b)
	case Int:
		return strconv.FormatInt(int64(v.i), 10)
	case Float:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	case String:
		return v.s
	case ColorKind:
		return v.c.String()
	}
	return ""
}

// Type lists the Go types a Value can carry.
type Type interface {
	bool | int32 | float32 | string | Color
}

func valueOf[T Type](v T) Value {
	switch x := any(v).(type) {
	case bool:
		return BoolValue(x)
	case int32:
		return IntValue(x)
	case float32:
		return FloatValue(x)
	case string:
		return StringValue(x)
	case Color:
		return ColorValue(x)
	}
	panic("unreachable")
}

// As extracts the value as T; ok is false if T is not the active kind.
func As[T Type](v Value) (T, bool) {
	var out T
	var match bool
	switch p := any(&out).(type) {
	case *bool:
		*p, match = v.b, v.kind == Bool
	case *int32:
		*p, match = v.i, v.kind == Int
	case *float32:
		*p, match = v.f, v.kind == Float
	case *string:
		*p, match = v.s, v.kind == String
	case *Color:
		*p, match = v.c, v.kind == ColorKind
	}
	if !match {
		var zero T
		return zero, false
	}
	return out, true
}
