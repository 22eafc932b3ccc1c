package snapshot

import (
	"github.com/ritzau/symdiff/pkg/nodes"
)

// UntypedSignature snapshots the signature of a function that has no type
// yet. A change in argument names or kinds must still be detected even
// though no callable type backs the declaration, so the snapshot is taken
// from the declaration itself.
func UntypedSignature(fn nodes.FuncLike) Value {
	switch fn := fn.(type) {
	case *nodes.FuncDef:
		names := make(Tuple, 0, len(fn.ArgNames))
		for _, name := range fn.ArgNames {
			names = append(names, Str(name))
		}
		return Tuple{names, argKinds(fn.ArgKinds)}
	case *nodes.OverloadedFuncDef:
		result := make(Tuple, 0, len(fn.Items))
		for _, item := range fn.Items {
			switch item := item.(type) {
			case *nodes.Decorator:
				if item.Var != nil && item.Var.Type != nil {
					result = append(result, Type(item.Var.Type))
				} else {
					result = append(result, Tuple{Str("DecoratorWithoutType")})
				}
			case *nodes.FuncDef:
				result = append(result, UntypedSignature(item))
			default:
				invariant("unknown overload item %T in %s", item, fn.FullName())
			}
		}
		return result
	default:
		invariant("unknown function variant %T", fn)
	}
	return nil
}
