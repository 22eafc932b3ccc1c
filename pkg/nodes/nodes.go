// Package nodes holds the declaration model that the binder attaches to
// symbol tables: modules, functions, variables, decorators, classes and type
// variable declarations.
package nodes

import "github.com/ritzau/symdiff/pkg/types"

// SymbolNode is a declaration that a symbol table entry can point at
type SymbolNode interface {
	// FullName returns the fully-qualified, dot-joined name of the declaration
	FullName() string

	isSymbolNode()
}

// FuncLike is a function declaration, plain or overloaded
type FuncLike interface {
	SymbolNode
	isFuncLike()
}

// OverloadPart is one item of an overload group: a plain function or a
// decorated one (usually carrying @overload)
type OverloadPart interface {
	SymbolNode
	isOverloadPart()
}

// Module is the target of a module reference
type Module struct {
	Name string
}

func (m *Module) FullName() string { return m.Name }

// FuncDef is a plain function or method. Type is nil until the checker has
// assigned a callable type to it.
type FuncDef struct {
	Name       string
	Full       string
	ArgNames   []string
	ArgKinds   []types.ArgKind
	Type       types.Type
	IsProperty bool
}

func (f *FuncDef) FullName() string { return f.Full }

// OverloadedFuncDef is a group of @overload items plus an optional
// implementation
type OverloadedFuncDef struct {
	Full       string
	Items      []OverloadPart
	Type       types.Type
	IsProperty bool
}

func (o *OverloadedFuncDef) FullName() string { return o.Full }

// Var is a variable or attribute. Type is nil when not declared or inferred.
type Var struct {
	Name string
	Full string
	Type types.Type
}

func (v *Var) FullName() string { return v.Full }

// Decorator is a decorated function. Var carries the type of the decorated
// expression as assigned by the checker.
type Decorator struct {
	Func       *FuncDef
	Var        *Var
	IsOverload bool
}

// FullName is the name of the decorated function, empty if it is missing
func (d *Decorator) FullName() string {
	if d.Func == nil {
		return ""
	}
	return d.Func.FullName()
}

// TypeVarExpr declares a type variable: T = TypeVar('T', ...)
type TypeVarExpr struct {
	Name       string
	Full       string
	Values     []types.Type
	UpperBound types.Type
	Variance   types.Variance
}

func (t *TypeVarExpr) FullName() string { return t.Full }

// TypeInfo is a class declaration together with its member table
type TypeInfo struct {
	Full  string
	Names *SymbolTable

	// MRO lists the full names of the class and its ancestors in
	// method resolution order
	MRO      []string
	TypeVars []string
	Bases    []*types.Instance

	TupleType     *types.TupleType
	TypedDictType *types.TypedDictType
	Promote       types.Type

	IsAbstract    bool
	IsEnum        bool
	FallbackToAny bool
	IsNamedTuple  bool
	IsNewType     bool
}

func (t *TypeInfo) FullName() string { return t.Full }

func (*Module) isSymbolNode()            {}
func (*FuncDef) isSymbolNode()           {}
func (*OverloadedFuncDef) isSymbolNode() {}
func (*Var) isSymbolNode()               {}
func (*Decorator) isSymbolNode()         {}
func (*TypeVarExpr) isSymbolNode()       {}
func (*TypeInfo) isSymbolNode()          {}

func (*FuncDef) isFuncLike()           {}
func (*OverloadedFuncDef) isFuncLike() {}

func (*FuncDef) isOverloadPart()   {}
func (*Decorator) isOverloadPart() {}

var _ types.TypeRef = (*TypeInfo)(nil)
