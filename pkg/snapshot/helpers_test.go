package snapshot

import (
	"errors"
	"testing"

	"github.com/ritzau/symdiff/pkg/nodes"
	"github.com/ritzau/symdiff/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intType() *types.Instance    { return types.NewInstance("builtins.int") }
func strType() *types.Instance    { return types.NewInstance("builtins.str") }
func objectType() *types.Instance { return types.NewInstance("builtins.object") }

func callableType(ret types.Type, args ...types.Type) *types.CallableType {
	c := &types.CallableType{RetType: ret}
	for i, arg := range args {
		c.ArgTypes = append(c.ArgTypes, arg)
		c.ArgKinds = append(c.ArgKinds, types.ArgPos)
		c.ArgNames = append(c.ArgNames, string(rune('a'+i)))
	}
	return c
}

func gdef(node nodes.SymbolNode) *nodes.SymbolTableNode {
	return &nodes.SymbolTableNode{Kind: nodes.GlobalDef, Node: node, ModulePublic: true}
}

func mdef(node nodes.SymbolNode) *nodes.SymbolTableNode {
	return &nodes.SymbolTableNode{Kind: nodes.MemberDef, Node: node, ModulePublic: true}
}

func newClass(full string, mro ...string) *nodes.TypeInfo {
	return &nodes.TypeInfo{
		Full:  full,
		Names: nodes.NewSymbolTable(),
		MRO:   append([]string{full}, mro...),
		Bases: []*types.Instance{objectType()},
	}
}

// baseModule builds a fresh table for module "m" covering every entry kind
func baseModule() *nodes.SymbolTable {
	st := nodes.NewSymbolTable()

	st.Set("x", gdef(&nodes.Var{Name: "x", Full: "m.x", Type: intType()}))
	st.Set("f", gdef(&nodes.FuncDef{
		Name:     "f",
		Full:     "m.f",
		ArgNames: []string{"a"},
		ArgKinds: []types.ArgKind{types.ArgPos},
		Type:     callableType(strType(), intType()),
	}))

	class := newClass("m.C", "builtins.object")
	class.Names.Set("method", mdef(&nodes.FuncDef{
		Name:     "method",
		Full:     "m.C.method",
		ArgNames: []string{"self", "a"},
		ArgKinds: []types.ArgKind{types.ArgPos, types.ArgPos},
		Type: &types.CallableType{
			ArgTypes: []types.Type{types.NewInstance("m.C"), intType()},
			ArgKinds: []types.ArgKind{types.ArgPos, types.ArgPos},
			ArgNames: []string{"self", "a"},
			RetType:  &types.NoneType{},
		},
	}))
	class.Names.Set("attr", mdef(&nodes.Var{Name: "attr", Full: "m.C.attr", Type: intType()}))
	st.Set("C", gdef(class))

	st.Set("os", &nodes.SymbolTableNode{Kind: nodes.ModuleRef, Node: &nodes.Module{Name: "os"}})
	st.Set("y", gdef(&nodes.Var{Name: "y", Full: "x.y", Type: intType()}))
	st.Set("T", &nodes.SymbolTableNode{
		Kind: nodes.TypeVar,
		Node: &nodes.TypeVarExpr{Name: "T", Full: "m.T", UpperBound: objectType()},
	})
	st.Set("Alias", &nodes.SymbolTableNode{
		Kind:         nodes.TypeAlias,
		Node:         &nodes.Var{Name: "Alias", Full: "m.Alias"},
		TypeOverride: &types.UnionType{Items: []types.Type{intType(), strType()}},
	})
	return st
}

func lookup(t *testing.T, st *nodes.SymbolTable, name string) *nodes.SymbolTableNode {
	t.Helper()
	node, ok := st.Get(name)
	require.True(t, ok, "missing %s", name)
	return node
}

func requireInvariantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %T is not an error", r)
		var invErr *InvariantError
		assert.True(t, errors.As(err, &invErr), "unexpected panic %v", err)
	}()
	fn()
}
