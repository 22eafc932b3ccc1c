package snapshot

import (
	"github.com/ritzau/symdiff/pkg/nodes"
	"github.com/ritzau/symdiff/pkg/types"
)

// MaxNesting bounds how deep class member tables are followed
const MaxNesting = 64

// SymbolTable creates a snapshot of a module or class symbol table, recursing
// into the member tables of classes defined under prefix.
//
// Only shallow state is captured: entries that point into another module are
// represented by the target name and entry kind alone, so a change to the
// target never shows up as a change here. Propagating such changes is the job
// of the dependency graph.
//
// SymbolTable only reads the table. The caller must make sure nothing mutates
// it while the snapshot is taken.
func SymbolTable(prefix string, table *nodes.SymbolTable) Table {
	return symbolTable(prefix, table, 0)
}

func symbolTable(prefix string, table *nodes.SymbolTable, depth int) Table {
	if depth > MaxNesting {
		invariant("class nesting under %s exceeds %d levels", prefix, MaxNesting)
	}

	result := make(Table, table.Len())
	table.Each(func(name string, sym *nodes.SymbolTableNode) bool {
		result[name] = entry(prefix, name, sym, depth)
		return true
	})
	return result
}

func entry(prefix, name string, sym *nodes.SymbolTableNode, depth int) Value {
	if sym == nil {
		invariant("nil entry for %s.%s", prefix, name)
	}

	if dec, ok := sym.Node.(*nodes.Decorator); ok && (dec == nil || dec.Func == nil) {
		invariant("decorator %s.%s without a function", prefix, name)
	}

	var fullName Value = Null{}
	if sym.Node != nil {
		fullName = Str(sym.Node.FullName())
	}
	common := Tuple{fullName, Str(sym.Kind.String()), Bool(sym.ModulePublic)}

	switch sym.Kind {
	case nodes.ModuleRef:
		if _, ok := sym.Node.(*nodes.Module); !ok {
			invariant("module reference %s.%s points at %T", prefix, name, sym.Node)
		}
		return Tuple{Str("Moduleref"), common}

	case nodes.TypeVar:
		tv, ok := sym.Node.(*nodes.TypeVarExpr)
		if !ok || tv == nil {
			invariant("type variable %s.%s points at %T", prefix, name, sym.Node)
		}
		return Tuple{
			Str("TypeVar"),
			Int(tv.Variance),
			Types(tv.Values),
			Type(tv.UpperBound),
		}

	case nodes.TypeAlias:
		return Tuple{
			Str("TypeAlias"),
			strs(sym.AliasTypeVars),
			OptionalType(sym.TypeOverride),
		}

	case nodes.UnboundImported:
		invariant("unbound import %s.%s in a finished symbol table", prefix, name)
	}

	if !sym.Kind.IsDefinition() {
		invariant("unknown entry kind %d for %s.%s", sym.Kind, prefix, name)
	}

	if sym.Node != nil && nodes.Prefix(sym.Node.FullName()) != prefix {
		// Defined in another module
		return Tuple{Str("CrossRef"), common, Bool(sym.Normalized)}
	}
	return definition(sym.Node, common, depth)
}

// definition snapshots a declaration defined under the current prefix. Only
// externally visible attributes are included.
func definition(node nodes.SymbolNode, common Tuple, depth int) Value {
	switch node := node.(type) {
	case *nodes.FuncDef:
		return function(node, node.Type, node.IsProperty, common)
	case *nodes.OverloadedFuncDef:
		return function(node, node.Type, node.IsProperty, common)
	case *nodes.Var:
		return Tuple{Str("Var"), common, OptionalType(node.Type)}
	case *nodes.Decorator:
		var varType Value = Null{}
		if node.Var != nil {
			varType = OptionalType(node.Var.Type)
		}
		return Tuple{
			Str("Decorator"),
			Bool(node.IsOverload),
			varType,
			definition(node.Func, common, depth),
		}
	case *nodes.TypeInfo:
		return Tuple{
			Str("TypeInfo"),
			common,
			classAttributes(node),
			symbolTable(node.FullName(), node.Names, depth+1),
		}
	case nil:
		invariant("definition entry without a node")
	default:
		invariant("unexpected declaration %T", node)
	}
	return nil
}

func function(fn nodes.FuncLike, typ types.Type, isProperty bool, common Tuple) Value {
	var signature Value
	if typ != nil {
		signature = Type(typ)
	} else {
		signature = UntypedSignature(fn)
	}
	return Tuple{Str("Func"), common, Bool(isProperty), signature}
}

// classAttributes holds the major attributes of a class. A change to any of
// them triggers the class itself rather than one of its members.
func classAttributes(info *nodes.TypeInfo) Tuple {
	var tupleType, typedDictType Value = Null{}, Null{}
	if info.TupleType != nil {
		tupleType = Type(info.TupleType)
	}
	if info.TypedDictType != nil {
		typedDictType = Type(info.TypedDictType)
	}

	bases := make(Tuple, 0, len(info.Bases))
	for _, base := range info.Bases {
		bases = append(bases, Type(base))
	}

	return Tuple{
		Bool(info.IsAbstract),
		Bool(info.IsEnum),
		Bool(info.FallbackToAny),
		Bool(info.IsNamedTuple),
		Bool(info.IsNewType),
		tupleType,
		typedDictType,
		strs(info.MRO),
		strs(info.TypeVars),
		bases,
		OptionalType(info.Promote),
	}
}

func strs(values []string) Tuple {
	result := make(Tuple, 0, len(values))
	for _, v := range values {
		result = append(result, Str(v))
	}
	return result
}
