// Package value holds the dynamic value types shared by the shell's compiler,
// binder and renderers.
package value

import "fmt"

// Sentinel is a distinguished singleton used to signal REPL-level conditions
// without errors. Sentinels compare by identity.
type Sentinel struct {
	name string
}

func (s *Sentinel) String() string {
	return s.name
}

var (
	// NoInput is returned when a blank line is read with nothing buffered.
	NoInput = &Sentinel{"<no input>"}
	// NoOutput is the value of a call whose native function returns nothing.
	NoOutput = &Sentinel{"<no output>"}
	// MissingMember is the value of a member lookup on a value that does not
	// expose that member.
	MissingMember = &Sentinel{"<missing member>"}
)

// IsSentinel reports whether v is one of the package sentinels.
func IsSentinel(v any) bool {
	_, ok := v.(*Sentinel)
	return ok
}

// KeyValue is the value produced by a key=value parameter.
type KeyValue struct {
	Key   string
	Value any
}

func (kv KeyValue) String() string {
	return fmt.Sprintf("%s=%v", kv.Key, kv.Value)
}

// MemberProvider is implemented by values that expose named members to the
// language beyond their struct fields.
type MemberProvider interface {
	Member(name string) (any, bool)
}

// Format renders a scalar value the way it would appear as a query or form
// value. Whole floats are printed without a fractional part.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
