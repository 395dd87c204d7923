package domain

// ValueKind tags which primitive a Value carries.
type ValueKind string

const (
	// ValueString marks a string value.
	ValueString ValueKind = "string"
	// ValueNumber marks a numeric value.
	ValueNumber ValueKind = "number"
	// ValueBool marks a boolean value.
	ValueBool ValueKind = "bool"
	// ValueStringList marks a list-of-strings value.
	ValueStringList ValueKind = "string_list"
)

// Value is a tagged union over the small set of primitives annotations
// actually use. Only the field matching Kind is meaningful.
type Value struct {
	// Kind selects which field carries the value.
	Kind ValueKind `json:"kind"`
	// Str carries the value when Kind is ValueString.
	Str string `json:"str,omitempty"`
	// Num carries the value when Kind is ValueNumber.
	Num float64 `json:"num,omitempty"`
	// Bool carries the value when Kind is ValueBool.
	Bool bool `json:"bool,omitempty"`
	// List carries the value when Kind is ValueStringList.
	List []string `json:"list,omitempty"`
}

// String wraps s as an annotation value.
func String(s string) Value { return Value{Kind: ValueString, Str: s} }

// Number wraps n as an annotation value.
func Number(n float64) Value { return Value{Kind: ValueNumber, Num: n} }

// Bool wraps b as an annotation value.
func Bool(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// StringList wraps ss as an annotation value. The slice is copied.
func StringList(ss []string) Value {
	return Value{Kind: ValueStringList, List: append([]string(nil), ss...)}
}

// Validate rejects values with an unknown kind tag.
func (v Value) Validate() error {
	switch v.Kind {
	case ValueString, ValueNumber, ValueBool, ValueStringList:
		return nil
	default:
		return NewError(KindValidation, "unknown annotation value kind %q", v.Kind)
	}
}

// clone returns a deep copy of v.
func (v Value) clone() Value {
	if v.Kind == ValueStringList {
		v.List = append([]string(nil), v.List...)
	}
	return v
}

// Annotations is a typed bag of auxiliary facts attached to a Goal. Keys are
// caller-defined; values are restricted to the Value union.
type Annotations map[string]Value

// Validate rejects annotation maps containing malformed values.
func (a Annotations) Validate() error {
	for k, v := range a {
		if k == "" {
			return NewError(KindValidation, "annotation key must not be empty")
		}
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of a, or nil when a is nil.
func (a Annotations) Clone() Annotations {
	if a == nil {
		return nil
	}
	out := make(Annotations, len(a))
	for k, v := range a {
		out[k] = v.clone()
	}
	return out
}
