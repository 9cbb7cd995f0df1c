// Package properties implements the typed custom properties that Tiled
// attaches to maps, tilesets, tiles and layers.
package properties

import (
	"math"
	"slices"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingNameOrValue = errors.New("properties: missing name or value attribute")
	ErrUnsupportedType    = errors.New("properties: unsupported property type")
)

// Entry is a single <property> element. A nil field means the attribute was
// absent.
type Entry struct {
	Name  *string `xml:"name,attr"`
	Value *string `xml:"value,attr"`
	Type  *string `xml:"type,attr"`
}

// NewEntry builds an entry; an empty typ means no type attribute.
func NewEntry(name, value, typ string) Entry {
	e := Entry{Name: &name, Value: &value}
	if typ != "" {
		e.Type = &typ
	}
	return e
}

// ParseEntry converts an entry into a named Value.
func ParseEntry(e Entry) (string, Value, error) {
	var name string
	if e.Name != nil {
		name = *e.Name
	}
	if name == "" || e.Value == nil {
		return name, Value{}, ErrMissingNameOrValue
	}
	raw := *e.Value
	if e.Type == nil {
		return name, StringValue(raw), nil
	}

	switch typ := *e.Type; typ {
	case "bool":
		return name, BoolValue(raw == "true"), nil
	case "int", "object":
		return name, IntValue(parseInt(raw)), nil
	case "float":
		return name, FloatValue(parseFloat(raw)), nil
	case "color":
		return name, ColorValue(ParseColor(raw)), nil
	case "string", "file":
		return name, StringValue(raw), nil
	default:
		return name, Value{}, errors.Wrapf(ErrUnsupportedType, "%q", typ)
	}
}

func parseInt(s string) int32 {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

func parseFloat(s string) float32 {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return float32(v)
}

// Policy decides what happens to entries ParseEntry rejects.
type Policy uint8

const (
	// Lenient drops rejected entries and logs them.
	Lenient Policy = iota
	// Strict fails on the first rejected entry.
	Strict
)

type Params struct {
	Policy Policy
	Logger logrus.FieldLogger
}

// FromEntries builds a store from a <properties> block. When a name repeats,
// the first entry wins.
func FromEntries(entries []Entry, params Params) (*Properties, error) {
	logger := params.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	p := New()
	for i, e := range entries {
		name, v, err := ParseEntry(e)
		if err != nil {
			if params.Policy == Strict {
				return nil, errors.Wrapf(err, "property #%d %q", i, name)
			}
			logger.WithFields(logrus.Fields{
				"property": name,
				"index":    i,
			}).WithError(err).Warn("skipping property")
			continue
		}
		if _, dup := p.values[name]; dup {
			logger.WithField("property", name).Debug("duplicate property ignored")
			continue
		}
		p.values[name] = v
	}
	return p, nil
}

// Properties maps names to typed values. A nil *Properties reads as empty.
type Properties struct {
	values map[string]Value
}

func New() *Properties {
	return &Properties{values: make(map[string]Value)}
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// Keys returns the property names in sorted order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (p *Properties) Lookup(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// SetValue stores v under key, replacing any previous value.
func (p *Properties) SetValue(key string, v Value) {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	p.values[key] = v
}

func (p *Properties) Remove(key string) {
	if p == nil {
		return
	}
	delete(p.values, key)
}

// Get returns the value under key if it holds a T. A missing key and a
// value of another kind are reported the same way.
func Get[T Type](p *Properties, key string) (T, bool) {
	v, ok := p.Lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	return As[T](v)
}

func Has[T Type](p *Properties, key string) bool {
	_, ok := Get[T](p, key)
	return ok
}

// Set stores value under key regardless of the kind previously held there.
func Set[T Type](p *Properties, key string, value T) {
	p.SetValue(key, valueOf(value))
}

func (p *Properties) GetBool(key string) (bool, bool)     { return Get[bool](p, key) }
func (p *Properties) GetInt(key string) (int32, bool)     { return Get[int32](p, key) }
func (p *Properties) GetFloat(key string) (float32, bool) { return Get[float32](p, key) }
func (p *Properties) GetString(key string) (string, bool) { return Get[string](p, key) }
func (p *Properties) GetColor(key string) (Color, bool)   { return Get[Color](p, key) }
