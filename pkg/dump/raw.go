package dump

import "encoding/json"

// File is the on-disk shape of a module dump
type File struct {
	Module       string              `json:"module"`
	Names        []Entry             `json:"names"`
	Dependencies map[string][]string `json:"dependencies,omitempty"`
}

// Entry is one symbol table entry
type Entry struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Public       bool     `json:"public"`
	Node         *Node    `json:"node,omitempty"`
	Normalized   bool     `json:"normalized,omitempty"`
	AliasTVars   []string `json:"alias_tvars,omitempty"`
	TypeOverride *Type    `json:"type_override,omitempty"`
}

// Node is a declaration object. Variant selects which of the remaining
// fields apply: Module, FuncDef, OverloadedFuncDef, Var, Decorator,
// TypeInfo or TypeVarExpr.
type Node struct {
	Variant  string `json:"node"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"fullname,omitempty"`

	// FuncDef, OverloadedFuncDef, Var
	ArgNames   []string `json:"arg_names,omitempty"`
	ArgKinds   []string `json:"arg_kinds,omitempty"`
	Type       *Type    `json:"type,omitempty"`
	IsProperty bool     `json:"is_property,omitempty"`
	Items      []*Node  `json:"items,omitempty"`

	// Decorator
	Func       *Node `json:"func,omitempty"`
	Var        *Node `json:"var,omitempty"`
	IsOverload bool  `json:"is_overload,omitempty"`

	// TypeVarExpr
	Values     []*Type `json:"values,omitempty"`
	UpperBound *Type   `json:"upper_bound,omitempty"`
	Variance   string  `json:"variance,omitempty"`

	// TypeInfo
	Names         []Entry  `json:"names,omitempty"`
	MRO           []string `json:"mro,omitempty"`
	TypeVars      []string `json:"type_vars,omitempty"`
	Bases         []*Type  `json:"bases,omitempty"`
	TupleType     *Type    `json:"tuple_type,omitempty"`
	TypedDictType *Type    `json:"typeddict_type,omitempty"`
	Promote       *Type    `json:"promote,omitempty"`
	IsAbstract    bool     `json:"is_abstract,omitempty"`
	IsEnum        bool     `json:"is_enum,omitempty"`
	FallbackToAny bool     `json:"fallback_to_any,omitempty"`
	IsNamedTuple  bool     `json:"is_named_tuple,omitempty"`
	IsNewType     bool     `json:"is_newtype,omitempty"`
}

// Type is a type object. Variant selects which of the remaining fields
// apply. Items holds types for TupleType, UnionType and Overloaded and
// key/type pairs for TypedDictType.
type Type struct {
	Variant string `json:"type"`

	// UnboundType, TypeVarType
	Name            string  `json:"name,omitempty"`
	Optional        bool    `json:"optional,omitempty"`
	EmptyTupleIndex bool    `json:"empty_tuple_index,omitempty"`
	Args            []*Type `json:"args,omitempty"`

	// Instance
	Class string `json:"class,omitempty"`

	// TypeVarType and the variables of a CallableType
	FullName   string  `json:"fullname,omitempty"`
	ID         int     `json:"id,omitempty"`
	MetaLevel  int     `json:"meta_level,omitempty"`
	Values     []*Type `json:"values,omitempty"`
	UpperBound *Type   `json:"upper_bound,omitempty"`
	Variance   string  `json:"variance,omitempty"`

	// CallableType
	ArgTypes       []*Type   `json:"arg_types,omitempty"`
	ArgKinds       []string  `json:"arg_kinds,omitempty"`
	ArgNames       []*string `json:"arg_names,omitempty"`
	RetType        *Type     `json:"ret_type,omitempty"`
	IsTypeObj      bool      `json:"is_type_obj,omitempty"`
	IsEllipsisArgs bool      `json:"is_ellipsis_args,omitempty"`
	Variables      []*Type   `json:"variables,omitempty"`

	// TupleType, UnionType, Overloaded, TypedDictType
	Items        json.RawMessage `json:"items,omitempty"`
	RequiredKeys []string        `json:"required_keys,omitempty"`

	// TypeType
	Item *Type `json:"item,omitempty"`

	// PartialType
	VarName string `json:"var_name,omitempty"`
}

// TypedDictItem is one key of a TypedDictType object
type TypedDictItem struct {
	Key  string `json:"key"`
	Type *Type  `json:"type"`
}
