package snapshot

import (
	"github.com/ritzau/symdiff/pkg/types"
)

// Type creates a self-contained snapshot of a type. References to classes are
// replaced by their full names and two snapshots are equal if and only if the
// types they describe are structurally the same.
//
// Type panics with an *InvariantError for partial types, which only exist
// while inference is still running.
func Type(t types.Type) Value {
	switch t := t.(type) {
	case *types.UnboundType:
		return Tuple{
			Str("UnboundType"),
			Str(t.Name),
			Bool(t.Optional),
			Bool(t.EmptyTupleIndex),
			Types(t.Args),
		}
	case *types.AnyType:
		return Tuple{Str("AnyType")}
	case *types.NoneType:
		return Tuple{Str("NoneType")}
	case *types.UninhabitedType:
		return Tuple{Str("UninhabitedType")}
	case *types.ErasedType:
		return Tuple{Str("ErasedType")}
	case *types.DeletedType:
		return Tuple{Str("DeletedType")}
	case *types.Instance:
		if t == nil || t.Type == nil {
			invariant("instance without a class reference")
		}
		return Tuple{
			Str("Instance"),
			Str(t.Type.FullName()),
			Types(t.Args),
		}
	case *types.TypeVarType:
		return Tuple{
			Str("TypeVar"),
			Str(t.Name),
			Str(t.FullName),
			Int(t.ID.RawID),
			Int(t.ID.MetaLevel),
			Types(t.Values),
			Type(t.UpperBound),
			Int(t.Variance),
		}
	case *types.CallableType:
		return callable(t)
	case *types.TupleType:
		return Tuple{Str("TupleType"), Types(t.Items)}
	case *types.TypedDictType:
		items := make(Tuple, 0, len(t.Items))
		for _, item := range t.Items {
			items = append(items, Tuple{Str(item.Key), Type(item.Type)})
		}
		required := make([]Value, 0, len(t.RequiredKeys))
		for _, key := range t.RequiredKeys {
			required = append(required, Str(key))
		}
		return Tuple{Str("TypedDictType"), items, SortUnique(required)}
	case *types.UnionType:
		// Members are snapshotted first so structurally equal members collapse
		members := make([]Value, 0, len(t.Items))
		for _, item := range t.Items {
			members = append(members, Type(item))
		}
		return Tuple{Str("UnionType"), SortUnique(members)}
	case *types.Overloaded:
		items := make(Tuple, 0, len(t.Items))
		for _, item := range t.Items {
			items = append(items, callable(item))
		}
		return Tuple{Str("Overloaded"), items}
	case *types.TypeType:
		return Tuple{Str("TypeType"), Type(t.Item)}
	case *types.PartialType:
		invariant("partial type for %q reached snapshot", t.VarName)
	case nil:
		invariant("nil type reached snapshot")
	default:
		invariant("unknown type variant %T", t)
	}
	return nil
}

// callable does not capture t.Variables, so two callables that differ only
// in their own type variables snapshot the same.
func callable(t *types.CallableType) Value {
	if t == nil {
		invariant("nil callable type reached snapshot")
	}
	names := make(Tuple, 0, len(t.ArgNames))
	for _, name := range t.ArgNames {
		if name == "" {
			names = append(names, Null{})
		} else {
			names = append(names, Str(name))
		}
	}
	return Tuple{
		Str("CallableType"),
		Types(t.ArgTypes),
		Type(t.RetType),
		names,
		argKinds(t.ArgKinds),
		Bool(t.IsTypeObj),
		Bool(t.IsEllipsisArgs),
	}
}

// OptionalType snapshots t, or returns Null when t is nil
func OptionalType(t types.Type) Value {
	if t == nil {
		return Null{}
	}
	return Type(t)
}

// Types snapshots a sequence of types, keeping their order
func Types(ts []types.Type) Tuple {
	result := make(Tuple, 0, len(ts))
	for _, t := range ts {
		result = append(result, Type(t))
	}
	return result
}

func argKinds(kinds []types.ArgKind) Tuple {
	result := make(Tuple, 0, len(kinds))
	for _, k := range kinds {
		result = append(result, Int(k))
	}
	return result
}
