// Package types is the read-only type model produced by the type checker.
// The set of variants is closed: code that consumes a Type switches over the
// concrete variants below and treats anything else as an invariant violation.
package types

// Type is implemented by every type variant in this package.
type Type interface {
	isType()
}

// TypeRef is a reference to a class declaration. Instances only need the
// full name of their class, so both live class declarations and bare names
// satisfy it.
type TypeRef interface {
	FullName() string
}

// NameRef is a TypeRef for a class known only by its fully-qualified name
type NameRef string

// FullName returns the referenced class name
func (n NameRef) FullName() string {
	return string(n)
}

// ArgKind describes how an argument is passed to a callable
type ArgKind int

const (
	ArgPos ArgKind = iota
	ArgOpt
	ArgStar
	ArgNamed
	ArgStar2
	ArgNamedOpt
)

func (k ArgKind) String() string {
	switch k {
	case ArgPos:
		return "pos"
	case ArgOpt:
		return "opt"
	case ArgStar:
		return "star"
	case ArgNamed:
		return "named"
	case ArgStar2:
		return "star2"
	case ArgNamedOpt:
		return "named_opt"
	default:
		return "unknown"
	}
}

// ParseArgKind is the inverse of ArgKind.String
func ParseArgKind(s string) (ArgKind, bool) {
	for k := ArgPos; k <= ArgNamedOpt; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Variance of a type variable
type Variance int

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	default:
		return "invariant"
	}
}

// ParseVariance is the inverse of Variance.String
func ParseVariance(s string) (Variance, bool) {
	switch s {
	case "", "invariant":
		return Invariant, true
	case "covariant":
		return Covariant, true
	case "contravariant":
		return Contravariant, true
	}
	return 0, false
}

// TypeVarID identifies a type variable binding. Negative raw ids belong to
// function-level type variables, positive ones to class-level variables.
type TypeVarID struct {
	RawID     int
	MetaLevel int
}

// -----------------------------------------------------------------------------

// UnboundType is a type reference that semantic analysis has not bound yet
type UnboundType struct {
	Name            string
	Optional        bool
	EmptyTupleIndex bool
	Args            []Type
}

// AnyType is the dynamic type
type AnyType struct{}

// NoneType is the type of None
type NoneType struct{}

// UninhabitedType is the bottom type
type UninhabitedType struct{}

// ErasedType is a placeholder left behind by type erasure
type ErasedType struct{}

// DeletedType is the type of a deleted variable
type DeletedType struct{}

// Instance is an instance of a class, with type arguments for generic classes
type Instance struct {
	Type TypeRef
	Args []Type
}

// TypeVarType is a reference to a type variable
type TypeVarType struct {
	Name       string
	FullName   string
	ID         TypeVarID
	Values     []Type
	UpperBound Type
	Variance   Variance
}

// TypeVarDef declares a type variable bound by a generic callable
type TypeVarDef struct {
	Name       string
	FullName   string
	ID         TypeVarID
	Values     []Type
	UpperBound Type
	Variance   Variance
}

// CallableType is the type of a function or other callable object.
// ArgNames entries are empty for anonymous (positional-only) arguments.
type CallableType struct {
	ArgTypes       []Type
	ArgKinds       []ArgKind
	ArgNames       []string
	RetType        Type
	IsTypeObj      bool
	IsEllipsisArgs bool
	Variables      []TypeVarDef
}

// TupleType is a fixed-length tuple
type TupleType struct {
	Items []Type
}

// TypedDictItem is one key of a TypedDict, in declaration order
type TypedDictItem struct {
	Key  string
	Type Type
}

// TypedDictType is a dictionary with a fixed set of string keys
type TypedDictType struct {
	Items        []TypedDictItem
	RequiredKeys []string
}

// UnionType is a union of types. Order and duplicates carry no meaning.
type UnionType struct {
	Items []Type
}

// Overloaded is the type of an overloaded function. Item order is
// significant since overload resolution picks the first match.
type Overloaded struct {
	Items []*CallableType
}

// PartialType is a type still being inferred. It must never escape inference.
type PartialType struct {
	VarName string
}

// TypeType is type[Item]
type TypeType struct {
	Item Type
}

func (*UnboundType) isType()     {}
func (*AnyType) isType()         {}
func (*NoneType) isType()        {}
func (*UninhabitedType) isType() {}
func (*ErasedType) isType()      {}
func (*DeletedType) isType()     {}
func (*Instance) isType()        {}
func (*TypeVarType) isType()     {}
func (*CallableType) isType()    {}
func (*TupleType) isType()       {}
func (*TypedDictType) isType()   {}
func (*UnionType) isType()       {}
func (*Overloaded) isType()      {}
func (*PartialType) isType()     {}
func (*TypeType) isType()        {}

// NewInstance is a shorthand for an instance of a class known by name
func NewInstance(fullName string, args ...Type) *Instance {
	return &Instance{Type: NameRef(fullName), Args: args}
}
