package dump

import (
	"encoding/json"
	"fmt"

	"github.com/ritzau/symdiff/pkg/nodes"
	"github.com/ritzau/symdiff/pkg/snapshot"
	"github.com/ritzau/symdiff/pkg/types"
)

// converter turns the raw JSON shapes into the declaration model. Every
// check here guards a condition the snapshot builder would otherwise treat as
// an invariant violation.
type converter struct{}

func invalid(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, path, fmt.Sprintf(format, args...))
}

func (c converter) table(path string, entries []Entry, depth int) (*nodes.SymbolTable, error) {
	if depth > snapshot.MaxNesting {
		return nil, invalid(path, "class nesting exceeds %d levels", snapshot.MaxNesting)
	}

	st := nodes.NewSymbolTable()
	for i, e := range entries {
		entryPath := fmt.Sprintf("%s.names[%d]", path, i)
		if e.Name == "" {
			return nil, invalid(entryPath, "missing name")
		}
		if _, exists := st.Get(e.Name); exists {
			return nil, invalid(entryPath, "duplicate name %q", e.Name)
		}
		entryPath = fmt.Sprintf("%s(%s)", entryPath, e.Name)

		sym, err := c.entry(entryPath, e, depth)
		if err != nil {
			return nil, err
		}
		st.Set(e.Name, sym)
	}
	return st, nil
}

func (c converter) entry(path string, e Entry, depth int) (*nodes.SymbolTableNode, error) {
	kind, ok := nodes.ParseKind(e.Kind)
	if !ok {
		return nil, invalid(path, "unknown kind %q", e.Kind)
	}

	sym := &nodes.SymbolTableNode{
		Kind:          kind,
		ModulePublic:  e.Public,
		Normalized:    e.Normalized,
		AliasTypeVars: e.AliasTVars,
	}

	switch kind {
	case nodes.UnboundImported:
		return nil, invalid(path, "unbound import")
	case nodes.ModuleRef:
		if e.Node == nil || e.Node.Variant != "Module" {
			return nil, invalid(path, "module reference must point at a Module node")
		}
	case nodes.TypeVar:
		if e.Node == nil || e.Node.Variant != "TypeVarExpr" {
			return nil, invalid(path, "type variable must point at a TypeVarExpr node")
		}
	case nodes.TypeAlias:
		if e.TypeOverride != nil {
			t, err := c.typ(path+".type_override", e.TypeOverride)
			if err != nil {
				return nil, err
			}
			sym.TypeOverride = t
		}
	default:
		if e.Node == nil {
			return nil, invalid(path, "definition without node")
		}
		if e.Node.Variant == "Module" {
			return nil, invalid(path, "Module node is only valid in module_ref entries")
		}
	}

	if e.Node != nil {
		node, err := c.node(path+".node", e.Node, depth)
		if err != nil {
			return nil, err
		}
		sym.Node = node
	}
	return sym, nil
}

func (c converter) node(path string, n *Node, depth int) (nodes.SymbolNode, error) {
	switch n.Variant {
	case "Module":
		if n.Name == "" {
			return nil, invalid(path, "Module without name")
		}
		return &nodes.Module{Name: n.Name}, nil

	case "FuncDef":
		return c.funcDef(path, n)

	case "OverloadedFuncDef":
		if n.FullName == "" {
			return nil, invalid(path, "OverloadedFuncDef without fullname")
		}
		over := &nodes.OverloadedFuncDef{Full: n.FullName, IsProperty: n.IsProperty}
		if err := c.optionalType(path+".type", n.Type, &over.Type); err != nil {
			return nil, err
		}
		for i, item := range n.Items {
			itemPath := fmt.Sprintf("%s.items[%d]", path, i)
			if item == nil {
				return nil, invalid(itemPath, "null overload item")
			}
			switch item.Variant {
			case "FuncDef":
				fn, err := c.funcDef(itemPath, item)
				if err != nil {
					return nil, err
				}
				over.Items = append(over.Items, fn)
			case "Decorator":
				dec, err := c.decorator(itemPath, item)
				if err != nil {
					return nil, err
				}
				over.Items = append(over.Items, dec)
			default:
				return nil, invalid(itemPath, "overload item must be FuncDef or Decorator, got %q", item.Variant)
			}
		}
		return over, nil

	case "Var":
		return c.variable(path, n)

	case "Decorator":
		return c.decorator(path, n)

	case "TypeVarExpr":
		if n.FullName == "" {
			return nil, invalid(path, "TypeVarExpr without fullname")
		}
		tv := &nodes.TypeVarExpr{Name: n.Name, Full: n.FullName}
		var err error
		if tv.Values, err = c.types(path+".values", n.Values); err != nil {
			return nil, err
		}
		if tv.UpperBound, err = c.upperBound(path+".upper_bound", n.UpperBound); err != nil {
			return nil, err
		}
		var ok bool
		if tv.Variance, ok = types.ParseVariance(n.Variance); !ok {
			return nil, invalid(path, "unknown variance %q", n.Variance)
		}
		return tv, nil

	case "TypeInfo":
		return c.typeInfo(path, n, depth)

	case "":
		return nil, invalid(path, "missing node variant")
	}
	return nil, invalid(path, "unknown node variant %q", n.Variant)
}

func (c converter) funcDef(path string, n *Node) (*nodes.FuncDef, error) {
	if n.Variant != "FuncDef" {
		return nil, invalid(path, "expected FuncDef, got %q", n.Variant)
	}
	if n.FullName == "" {
		return nil, invalid(path, "FuncDef without fullname")
	}
	kinds, err := argKinds(path+".arg_kinds", n.ArgKinds)
	if err != nil {
		return nil, err
	}
	fn := &nodes.FuncDef{
		Name:       n.Name,
		Full:       n.FullName,
		ArgNames:   n.ArgNames,
		ArgKinds:   kinds,
		IsProperty: n.IsProperty,
	}
	if err := c.optionalType(path+".type", n.Type, &fn.Type); err != nil {
		return nil, err
	}
	return fn, nil
}

func (c converter) variable(path string, n *Node) (*nodes.Var, error) {
	if n.Variant != "Var" {
		return nil, invalid(path, "expected Var, got %q", n.Variant)
	}
	if n.FullName == "" {
		return nil, invalid(path, "Var without fullname")
	}
	v := &nodes.Var{Name: n.Name, Full: n.FullName}
	if err := c.optionalType(path+".type", n.Type, &v.Type); err != nil {
		return nil, err
	}
	return v, nil
}

func (c converter) decorator(path string, n *Node) (*nodes.Decorator, error) {
	if n.Func == nil {
		return nil, invalid(path, "Decorator without func")
	}
	fn, err := c.funcDef(path+".func", n.Func)
	if err != nil {
		return nil, err
	}
	dec := &nodes.Decorator{Func: fn, IsOverload: n.IsOverload}
	if n.Var != nil {
		if dec.Var, err = c.variable(path+".var", n.Var); err != nil {
			return nil, err
		}
	}
	return dec, nil
}

func (c converter) typeInfo(path string, n *Node, depth int) (*nodes.TypeInfo, error) {
	if n.FullName == "" {
		return nil, invalid(path, "TypeInfo without fullname")
	}
	names, err := c.table(path, n.Names, depth+1)
	if err != nil {
		return nil, err
	}

	info := &nodes.TypeInfo{
		Full:          n.FullName,
		Names:         names,
		MRO:           n.MRO,
		TypeVars:      n.TypeVars,
		IsAbstract:    n.IsAbstract,
		IsEnum:        n.IsEnum,
		FallbackToAny: n.FallbackToAny,
		IsNamedTuple:  n.IsNamedTuple,
		IsNewType:     n.IsNewType,
	}
	if len(info.MRO) == 0 {
		info.MRO = []string{n.FullName}
	}

	for i, b := range n.Bases {
		basePath := fmt.Sprintf("%s.bases[%d]", path, i)
		t, err := c.typ(basePath, b)
		if err != nil {
			return nil, err
		}
		inst, ok := t.(*types.Instance)
		if !ok {
			return nil, invalid(basePath, "base must be an Instance")
		}
		info.Bases = append(info.Bases, inst)
	}

	if n.TupleType != nil {
		t, err := c.typ(path+".tuple_type", n.TupleType)
		if err != nil {
			return nil, err
		}
		tuple, ok := t.(*types.TupleType)
		if !ok {
			return nil, invalid(path+".tuple_type", "expected TupleType")
		}
		info.TupleType = tuple
	}
	if n.TypedDictType != nil {
		t, err := c.typ(path+".typeddict_type", n.TypedDictType)
		if err != nil {
			return nil, err
		}
		td, ok := t.(*types.TypedDictType)
		if !ok {
			return nil, invalid(path+".typeddict_type", "expected TypedDictType")
		}
		info.TypedDictType = td
	}
	if err := c.optionalType(path+".promote", n.Promote, &info.Promote); err != nil {
		return nil, err
	}
	return info, nil
}

// -----------------------------------------------------------------------------

func (c converter) optionalType(path string, raw *Type, dst *types.Type) error {
	if raw == nil {
		return nil
	}
	t, err := c.typ(path, raw)
	if err != nil {
		return err
	}
	*dst = t
	return nil
}

func (c converter) types(path string, raw []*Type) ([]types.Type, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	result := make([]types.Type, 0, len(raw))
	for i, r := range raw {
		t, err := c.typ(fmt.Sprintf("%s[%d]", path, i), r)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func (c converter) upperBound(path string, raw *Type) (types.Type, error) {
	if raw == nil {
		return types.NewInstance("builtins.object"), nil
	}
	return c.typ(path, raw)
}

func (c converter) itemTypes(path string, raw json.RawMessage) ([]types.Type, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []*Type
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalid(path, "items: %v", err)
	}
	return c.types(path, items)
}

func (c converter) typ(path string, t *Type) (types.Type, error) {
	if t == nil {
		return nil, invalid(path, "missing type")
	}

	switch t.Variant {
	case "UnboundType":
		args, err := c.types(path+".args", t.Args)
		if err != nil {
			return nil, err
		}
		return &types.UnboundType{
			Name:            t.Name,
			Optional:        t.Optional,
			EmptyTupleIndex: t.EmptyTupleIndex,
			Args:            args,
		}, nil

	case "AnyType":
		return &types.AnyType{}, nil
	case "NoneType":
		return &types.NoneType{}, nil
	case "UninhabitedType":
		return &types.UninhabitedType{}, nil
	case "ErasedType":
		return &types.ErasedType{}, nil
	case "DeletedType":
		return &types.DeletedType{}, nil

	case "Instance":
		if t.Class == "" {
			return nil, invalid(path, "Instance without class")
		}
		args, err := c.types(path+".args", t.Args)
		if err != nil {
			return nil, err
		}
		return types.NewInstance(t.Class, args...), nil

	case "TypeVarType":
		def, err := c.typeVar(path, t)
		if err != nil {
			return nil, err
		}
		tv := types.TypeVarType(def)
		return &tv, nil

	case "CallableType":
		return c.callable(path, t)

	case "TupleType":
		items, err := c.itemTypes(path+".items", t.Items)
		if err != nil {
			return nil, err
		}
		return &types.TupleType{Items: items}, nil

	case "TypedDictType":
		td := &types.TypedDictType{RequiredKeys: t.RequiredKeys}
		if len(t.Items) > 0 {
			var items []TypedDictItem
			if err := json.Unmarshal(t.Items, &items); err != nil {
				return nil, invalid(path, "items: %v", err)
			}
			for i, item := range items {
				itemType, err := c.typ(fmt.Sprintf("%s.items[%d]", path, i), item.Type)
				if err != nil {
					return nil, err
				}
				td.Items = append(td.Items, types.TypedDictItem{Key: item.Key, Type: itemType})
			}
		}
		return td, nil

	case "UnionType":
		items, err := c.itemTypes(path+".items", t.Items)
		if err != nil {
			return nil, err
		}
		return &types.UnionType{Items: items}, nil

	case "Overloaded":
		items, err := c.itemTypes(path+".items", t.Items)
		if err != nil {
			return nil, err
		}
		over := &types.Overloaded{}
		for i, item := range items {
			callable, ok := item.(*types.CallableType)
			if !ok {
				return nil, invalid(fmt.Sprintf("%s.items[%d]", path, i), "overload item must be a CallableType")
			}
			over.Items = append(over.Items, callable)
		}
		return over, nil

	case "TypeType":
		item, err := c.typ(path+".item", t.Item)
		if err != nil {
			return nil, err
		}
		return &types.TypeType{Item: item}, nil

	case "PartialType":
		return nil, invalid(path, "partial type for %q escaped inference", t.VarName)

	case "":
		return nil, invalid(path, "missing type variant")
	}
	return nil, invalid(path, "unknown type variant %q", t.Variant)
}

func (c converter) typeVar(path string, t *Type) (types.TypeVarDef, error) {
	def := types.TypeVarDef{
		Name:     t.Name,
		FullName: t.FullName,
		ID:       types.TypeVarID{RawID: t.ID, MetaLevel: t.MetaLevel},
	}
	var err error
	if def.Values, err = c.types(path+".values", t.Values); err != nil {
		return def, err
	}
	if def.UpperBound, err = c.upperBound(path+".upper_bound", t.UpperBound); err != nil {
		return def, err
	}
	var ok bool
	if def.Variance, ok = types.ParseVariance(t.Variance); !ok {
		return def, invalid(path, "unknown variance %q", t.Variance)
	}
	return def, nil
}

func (c converter) callable(path string, t *Type) (*types.CallableType, error) {
	argTypes, err := c.types(path+".arg_types", t.ArgTypes)
	if err != nil {
		return nil, err
	}
	kinds, err := argKinds(path+".arg_kinds", t.ArgKinds)
	if err != nil {
		return nil, err
	}
	ret, err := c.typ(path+".ret_type", t.RetType)
	if err != nil {
		return nil, err
	}

	callable := &types.CallableType{
		ArgTypes:       argTypes,
		ArgKinds:       kinds,
		RetType:        ret,
		IsTypeObj:      t.IsTypeObj,
		IsEllipsisArgs: t.IsEllipsisArgs,
	}
	for _, name := range t.ArgNames {
		if name == nil {
			callable.ArgNames = append(callable.ArgNames, "")
		} else {
			callable.ArgNames = append(callable.ArgNames, *name)
		}
	}
	for i, v := range t.Variables {
		varPath := fmt.Sprintf("%s.variables[%d]", path, i)
		if v == nil {
			return nil, invalid(varPath, "null type variable")
		}
		def, err := c.typeVar(varPath, v)
		if err != nil {
			return nil, err
		}
		callable.Variables = append(callable.Variables, def)
	}
	return callable, nil
}

func argKinds(path string, raw []string) ([]types.ArgKind, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	kinds := make([]types.ArgKind, 0, len(raw))
	for i, s := range raw {
		k, ok := types.ParseArgKind(s)
		if !ok {
			return nil, invalid(fmt.Sprintf("%s[%d]", path, i), "unknown argument kind %q", s)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
