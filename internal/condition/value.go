package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags a Value.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindEllipsis
	KindTuple
	KindSlice
)

var kindNames = map[Kind]string{
	KindNone:     "NoneType",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindStr:      "str",
	KindBytes:    "bytes",
	KindEllipsis: "ellipsis",
	KindTuple:    "tuple",
	KindSlice:    "slice",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is the result of evaluating a condition. Only the field matching Kind
// is meaningful.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string // str and bytes
	Tuple []Value
	slice *slice
}

type slice struct {
	lower, upper, step *int64
}

func None() Value               { return Value{Kind: KindNone} }
func Bool(b bool) Value         { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value         { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value     { return Value{Kind: KindFloat, Float: f} }
func Str(s string) Value        { return Value{Kind: KindStr, Str: s} }
func Bytes(s string) Value      { return Value{Kind: KindBytes, Str: s} }
func Ellipsis() Value           { return Value{Kind: KindEllipsis} }
func Tuple(elts ...Value) Value { return Value{Kind: KindTuple, Tuple: elts} }

// Truthy reports the value's truth under Python rules.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindStr, KindBytes:
		return v.Str != ""
	case KindTuple:
		return len(v.Tuple) > 0
	case KindEllipsis, KindSlice:
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindStr:
		return strconv.Quote(v.Str)
	case KindBytes:
		return "b" + strconv.Quote(v.Str)
	case KindEllipsis:
		return "Ellipsis"
	case KindTuple:
		parts := make([]string, len(v.Tuple))
		for i, elt := range v.Tuple {
			parts[i] = elt.String()
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindSlice:
		return fmt.Sprintf("slice(%s, %s, %s)", optInt(v.slice.lower), optInt(v.slice.upper), optInt(v.slice.step))
	default:
		return v.Kind.String()
	}
}

func optInt(p *int64) string {
	if p == nil {
		return "None"
	}
	return strconv.FormatInt(*p, 10)
}

func (v Value) isNumber() bool {
	return v.Kind == KindBool || v.Kind == KindInt || v.Kind == KindFloat
}

// asInt returns bools and ints as int64.
func (v Value) asInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (v Value) asFloat() float64 {
	if v.Kind == KindFloat {
		return v.Float
	}
	i, _ := v.asInt()
	return float64(i)
}

// Equal implements ==. Values of unrelated kinds are unequal, never an error.
func Equal(a, b Value) bool {
	switch {
	case a.isNumber() && b.isNumber():
		if a.Kind == KindFloat || b.Kind == KindFloat {
			return a.asFloat() == b.asFloat()
		}
		x, _ := a.asInt()
		y, _ := b.asInt()
		return x == y
	case a.Kind != b.Kind:
		return false
	}

	switch a.Kind {
	case KindNone, KindEllipsis:
		return true
	case KindStr, KindBytes:
		return a.Str == b.Str
	case KindTuple:
		if len(a.Tuple) != len(b.Tuple) {
			return false
		}
		for i := range a.Tuple {
			if !Equal(a.Tuple[i], b.Tuple[i]) {
				return false
			}
		}
		return true
	case KindSlice:
		return a.String() == b.String()
	}
	return false
}

// Compare orders a and b, returning -1, 0 or 1. Mixed kinds that Python
// refuses to order are an error.
func Compare(a, b Value) (int, error) {
	switch {
	case a.isNumber() && b.isNumber():
		if a.Kind == KindFloat || b.Kind == KindFloat {
			return cmp3(a.asFloat(), b.asFloat()), nil
		}
		x, _ := a.asInt()
		y, _ := b.asInt()
		return cmp3(x, y), nil
	case a.Kind == KindStr && b.Kind == KindStr, a.Kind == KindBytes && b.Kind == KindBytes:
		return strings.Compare(a.Str, b.Str), nil
	case a.Kind == KindTuple && b.Kind == KindTuple:
		for i := 0; i < len(a.Tuple) && i < len(b.Tuple); i++ {
			if Equal(a.Tuple[i], b.Tuple[i]) {
				continue
			}
			return Compare(a.Tuple[i], b.Tuple[i])
		}
		return cmp3(len(a.Tuple), len(b.Tuple)), nil
	}
	return 0, fmt.Errorf("cannot order %s and %s", a.Kind, b.Kind)
}

func cmp3[T int | int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// identical implements "is": singletons and scalars compare by value,
// containers are never identical.
func identical(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindTuple, KindSlice:
		return false
	}
	return Equal(a, b)
}

func contains(container, item Value) (bool, error) {
	switch container.Kind {
	case KindTuple:
		for _, elt := range container.Tuple {
			if Equal(elt, item) {
				return true, nil
			}
		}
		return false, nil
	case KindStr, KindBytes:
		if item.Kind != container.Kind {
			return false, fmt.Errorf("'in <%s>' requires %s as left operand, not %s", container.Kind, container.Kind, item.Kind)
		}
		return strings.Contains(container.Str, item.Str), nil
	}
	return false, fmt.Errorf("argument of type %s is not iterable", container.Kind)
}

// index implements container[key] for tuples, str and bytes.
func index(container, key Value) (Value, error) {
	var length int
	switch container.Kind {
	case KindTuple:
		length = len(container.Tuple)
	case KindStr, KindBytes:
		length = len(container.Str)
	default:
		return Value{}, fmt.Errorf("%s object is not subscriptable", container.Kind)
	}

	if key.Kind == KindSlice {
		return sliceOf(container, indices(key.slice, length))
	}

	i, ok := key.asInt()
	if !ok {
		return Value{}, fmt.Errorf("indices must be integers or slices, not %s", key.Kind)
	}
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return Value{}, fmt.Errorf("%s index out of range", container.Kind)
	}

	switch container.Kind {
	case KindTuple:
		return container.Tuple[i], nil
	case KindBytes:
		return Int(int64(container.Str[i])), nil
	default:
		return Str(container.Str[i : i+1]), nil
	}
}

// indices lists the positions a slice selects in a sequence of length n.
func indices(s *slice, n int) []int {
	step := int64(1)
	if s.step != nil {
		step = *s.step
	}
	length := int64(n)

	adjust := func(p *int64, def int64) int64 {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += length
			if v < 0 {
				if step < 0 {
					return -1
				}
				return 0
			}
		} else if v >= length {
			if step < 0 {
				return length - 1
			}
			return length
		}
		return v
	}

	var start, stop int64
	if step > 0 {
		start, stop = adjust(s.lower, 0), adjust(s.upper, length)
	} else {
		start, stop = adjust(s.lower, length-1), adjust(s.upper, -1)
	}

	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, int(i))
		}
	}
	return out
}

func sliceOf(container Value, positions []int) (Value, error) {
	if container.Kind == KindTuple {
		elts := make([]Value, 0, len(positions))
		for _, p := range positions {
			elts = append(elts, container.Tuple[p])
		}
		return Tuple(elts...), nil
	}

	var sb strings.Builder
	for _, p := range positions {
		sb.WriteByte(container.Str[p])
	}
	return Value{Kind: container.Kind, Str: sb.String()}, nil
}
