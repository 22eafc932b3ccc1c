package snapshot

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"hash"
	"sort"
	"strconv"
	"strings"
)

// Value is a node of a snapshot. Values are built only from the primitives
// below, never reference the live model and are never mutated once built.
type Value interface {
	isValue()
}

// Null marks an absent value
type Null struct{}

// Bool is a flag
type Bool bool

// Int is an integer (argument kinds, variance, type variable ids)
type Int int64

// Str is a string (tags and names)
type Str string

// Tuple is an ordered sequence of values
type Tuple []Value

// Table maps member names to their snapshots. It only appears as the last
// element of a class snapshot.
type Table map[string]Value

func (Null) isValue()  {}
func (Bool) isValue()  {}
func (Int) isValue()   {}
func (Str) isValue()   {}
func (Tuple) isValue() {}
func (Table) isValue() {}

// Tag returns the leading string of a tuple snapshot, or "" if v is not a
// tagged tuple
func Tag(v Value) string {
	t, ok := v.(Tuple)
	if !ok || len(t) == 0 {
		return ""
	}
	s, _ := t[0].(Str)
	return string(s)
}

// Equal reports whether two snapshots describe the same thing
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Int:
		b, ok := b.(Int)
		return ok && a == b
	case Str:
		b, ok := b.(Str)
		return ok && a == b
	case Tuple:
		b, ok := b.(Tuple)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case Table:
		b, ok := b.(Table)
		if !ok || len(a) != len(b) {
			return false
		}
		for name, av := range a {
			bv, exists := b[name]
			if !exists || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

func rank(v Value) int {
	switch v.(type) {
	case Null:
		return 0
	case Bool:
		return 1
	case Int:
		return 2
	case Str:
		return 3
	case Tuple:
		return 4
	case Table:
		return 5
	}
	return 6
}

// Compare defines a total order over snapshots. It returns a negative
// number, zero or a positive number when a sorts before, equal to or after b.
// Compare(a, b) == 0 exactly when Equal(a, b).
func Compare(a, b Value) int {
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}
	switch a := a.(type) {
	case Bool:
		b := b.(Bool)
		switch {
		case a == b:
			return 0
		case !bool(a):
			return -1
		default:
			return 1
		}
	case Int:
		b := b.(Int)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case Str:
		return strings.Compare(string(a), string(b.(Str)))
	case Tuple:
		b := b.(Tuple)
		for i := 0; i < len(a) && i < len(b); i++ {
			if c := Compare(a[i], b[i]); c != 0 {
				return c
			}
		}
		return len(a) - len(b)
	case Table:
		b := b.(Table)
		ak, bk := sortedKeys(a), sortedKeys(b)
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if c := strings.Compare(ak[i], bk[i]); c != 0 {
				return c
			}
			if c := Compare(a[ak[i]], b[bk[i]]); c != 0 {
				return c
			}
		}
		return len(ak) - len(bk)
	}
	return 0
}

// SortUnique sorts values and drops duplicates, returning a new tuple
func SortUnique(values []Value) Tuple {
	sorted := make(Tuple, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Compare(sorted[i], sorted[j]) < 0
	})

	result := make(Tuple, 0, len(sorted))
	for _, v := range sorted {
		if len(result) > 0 && Equal(result[len(result)-1], v) {
			continue
		}
		result = append(result, v)
	}
	return result
}

// Fingerprint returns a SHA-256 digest of the canonical encoding of v.
// Equal values always have the same fingerprint.
func Fingerprint(v Value) string {
	h := sha256.New()
	writeCanonical(h, v)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeCanonical(h hash.Hash, v Value) {
	switch v := v.(type) {
	case Null:
		h.Write([]byte{'n'})
	case Bool:
		if v {
			h.Write([]byte("b1"))
		} else {
			h.Write([]byte("b0"))
		}
	case Int:
		h.Write([]byte("i" + strconv.FormatInt(int64(v), 10) + ";"))
	case Str:
		h.Write([]byte("s" + strconv.Itoa(len(v)) + ":" + string(v)))
	case Tuple:
		h.Write([]byte("t" + strconv.Itoa(len(v)) + "("))
		for _, item := range v {
			writeCanonical(h, item)
		}
		h.Write([]byte{')'})
	case Table:
		h.Write([]byte("m" + strconv.Itoa(len(v)) + "{"))
		for _, name := range sortedKeys(v) {
			writeCanonical(h, Str(name))
			writeCanonical(h, v[name])
		}
		h.Write([]byte{'}'})
	}
}

// Format renders a snapshot in a compact, tuple-like notation for logs and
// test failures, e.g. ('Instance', 'builtins.int', ())
func Format(v Value) string {
	var b strings.Builder
	format(&b, v)
	return b.String()
}

func format(b *strings.Builder, v Value) {
	switch v := v.(type) {
	case Null:
		b.WriteString("None")
	case Bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case Int:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case Str:
		b.WriteString("'" + string(v) + "'")
	case Tuple:
		b.WriteByte('(')
		for i, item := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, item)
		}
		if len(v) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case Table:
		b.WriteByte('{')
		for i, name := range sortedKeys(v) {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("'" + name + "': ")
			format(b, v[name])
		}
		b.WriteByte('}')
	}
}

// MarshalJSON renders Null as JSON null
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON renders a tuple as a JSON array, never null
func (t Tuple) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(t))
}

// MarshalJSON renders a table as a JSON object, never null
func (t Table) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]Value(t))
}

func sortedKeys(t Table) []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
