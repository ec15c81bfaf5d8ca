package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the value type of a slot.
type Kind int

const (
	KindString Kind = iota
	KindInt
)

// SlotSpec describes one accepted slot.
type SlotSpec struct {
	Required bool
	Kind     Kind

	// Min and Max bound KindInt values (inclusive).
	Min, Max int

	// OneOf restricts KindString values; matching is case-insensitive and
	// the stored value is lower-cased.
	OneOf []string
}

// Schema maps slot names to their specs. Slots not in the schema are
// dropped during validation.
type Schema map[string]SlotSpec

// Values holds validated slots: strings for KindString and ints for
// KindInt.
type Values map[string]any

// String returns a string slot.
func (v Values) String(name string) (string, bool) {
	s, ok := v[name].(string)
	return s, ok
}

// Int returns an integer slot.
func (v Values) Int(name string) (int, bool) {
	n, ok := v[name].(int)
	return n, ok
}

// IntPtr returns an integer slot as a pointer, nil when absent.
func (v Values) IntPtr(name string) *int {
	n, ok := v.Int(name)
	if !ok {
		return nil
	}
	return &n
}

// Validate coerces raw slot values according to the schema. Blank values
// count as absent.
func (s Schema) Validate(raw map[string]string) (Values, error) {
	out := make(Values, len(s))

	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		spec := s[name]
		value := strings.TrimSpace(raw[name])
		if value == "" {
			if spec.Required {
				return nil, errors.Wrapf(ErrInvalidSlot, "%s: required", name)
			}
			continue
		}

		switch spec.Kind {
		case KindInt:
			n, ok := parseInt(value)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidSlot, "%s: %q is not an integer", name, value)
			}
			if n < spec.Min || n > spec.Max {
				return nil, errors.Wrapf(ErrInvalidSlot, "%s: %d outside %d..%d", name, n, spec.Min, spec.Max)
			}
			out[name] = n
		default:
			if len(spec.OneOf) > 0 {
				value = strings.ToLower(value)
				if !slices.Contains(spec.OneOf, value) {
					return nil, errors.Wrapf(ErrInvalidSlot, "%s: %q not one of %s", name, value, strings.Join(spec.OneOf, ", "))
				}
			}
			out[name] = value
		}
	}
	return out, nil
}

// parseInt accepts plain integers and integral decimals such as "7.0".
func parseInt(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// SlotsFromAny converts decoded JSON slot values into raw strings. Numbers
// keep their integer form.
func SlotsFromAny(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case nil:
		case string:
			out[k] = x
		case json.Number:
			out[k] = x.String()
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}
