package snapshot

import (
	"sort"
)

// Triggers is a set of fully-qualified names whose declarations changed
type Triggers map[string]struct{}

// NewTriggers creates a trigger set holding names
func NewTriggers(names ...string) Triggers {
	t := make(Triggers, len(names))
	for _, name := range names {
		t.Add(name)
	}
	return t
}

// Add adds a name to the set
func (t Triggers) Add(name string) {
	t[name] = struct{}{}
}

// Has reports whether name is in the set
func (t Triggers) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Union adds every name of other to t
func (t Triggers) Union(other Triggers) {
	for name := range other {
		t[name] = struct{}{}
	}
}

// Len returns the number of names
func (t Triggers) Len() int {
	return len(t)
}

// Sorted returns the names in lexical order
func (t Triggers) Sorted() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Diff returns the names that differ between two snapshots of the same
// symbol table, qualified with prefix (e.g. "mod.func" or "mod.Class.method").
//
// Names present in only one snapshot always trigger. A name whose entry
// changed kind triggers. For classes, only a change to the major attributes
// triggers the class name; member tables are compared recursively and their
// changes trigger the qualified member names only. Any other entry triggers
// when its snapshot changed.
//
// Diff panics with a *ShapeError if the snapshots were not produced by
// SymbolTable.
func Diff(prefix string, before, after Table) Triggers {
	triggers := make(Triggers)

	for name := range before {
		if _, ok := after[name]; !ok {
			triggers.Add(prefix + "." + name)
		}
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			triggers.Add(prefix + "." + name)
		}
	}

	for name, item1 := range before {
		item2, ok := after[name]
		if !ok {
			continue
		}
		qualified := prefix + "." + name

		t1, t2 := entryTuple(qualified, item1), entryTuple(qualified, item2)
		kind1, kind2 := Tag(t1), Tag(t2)
		switch {
		case kind1 != kind2:
			triggers.Add(qualified)
		case kind1 == "TypeInfo":
			members1, members2 := memberTable(qualified, t1), memberTable(qualified, t2)
			if !Equal(t1[:len(t1)-1], t2[:len(t2)-1]) {
				triggers.Add(qualified)
			}
			triggers.Union(Diff(qualified, members1, members2))
		default:
			if !Equal(t1, t2) {
				triggers.Add(qualified)
			}
		}
	}

	return triggers
}

func entryTuple(name string, v Value) Tuple {
	t, ok := v.(Tuple)
	if !ok || len(t) == 0 {
		panic(&ShapeError{Name: name, Msg: "entry is not a tagged tuple"})
	}
	if _, ok := t[0].(Str); !ok {
		panic(&ShapeError{Name: name, Msg: "entry has no tag"})
	}
	return t
}

func memberTable(name string, t Tuple) Table {
	members, ok := t[len(t)-1].(Table)
	if !ok {
		panic(&ShapeError{Name: name, Msg: "class entry does not end with a member table"})
	}
	return members
}
