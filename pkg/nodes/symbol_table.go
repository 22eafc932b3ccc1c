package nodes

import (
	"strings"

	"github.com/ritzau/symdiff/pkg/types"
)

// Kind tags what a symbol table entry refers to
type Kind int

const (
	LocalDef Kind = iota
	GlobalDef
	MemberDef
	ModuleRef
	UnboundImported
	TypeVar
	TypeAlias
)

var kindNames = map[Kind]string{
	LocalDef:        "ldef",
	GlobalDef:       "gdef",
	MemberDef:       "mdef",
	ModuleRef:       "module_ref",
	UnboundImported: "unbound_imported",
	TypeVar:         "tvar",
	TypeAlias:       "type_alias",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// IsDefinition reports whether entries of this kind point at a real
// declaration rather than a module, type variable or alias
func (k Kind) IsDefinition() bool {
	return k == LocalDef || k == GlobalDef || k == MemberDef
}

// SymbolTableNode is one entry of a symbol table
type SymbolTableNode struct {
	Kind         Kind
	Node         SymbolNode
	ModulePublic bool

	// Normalized is set for cross-module references whose target name was
	// rewritten to its canonical location
	Normalized bool

	// Type alias entries only
	AliasTypeVars []string
	TypeOverride  types.Type
}

// FullName returns the full name of the target, or "" when there is none
func (n *SymbolTableNode) FullName() string {
	if n.Node == nil {
		return ""
	}
	return n.Node.FullName()
}

// SymbolTable maps names declared in a module or class to their entries.
// Iteration follows insertion order, which carries no meaning for diffing.
type SymbolTable struct {
	names   []string
	entries map[string]*SymbolTableNode
}

// NewSymbolTable creates an empty symbol table
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		entries: make(map[string]*SymbolTableNode),
	}
}

// Set adds or replaces an entry. Replacing keeps the original position.
func (st *SymbolTable) Set(name string, node *SymbolTableNode) {
	if _, exists := st.entries[name]; !exists {
		st.names = append(st.names, name)
	}
	st.entries[name] = node
}

// Get returns the entry for name
func (st *SymbolTable) Get(name string) (*SymbolTableNode, bool) {
	node, ok := st.entries[name]
	return node, ok
}

// Delete removes an entry if present
func (st *SymbolTable) Delete(name string) {
	if _, exists := st.entries[name]; !exists {
		return
	}
	delete(st.entries, name)
	for i, n := range st.names {
		if n == name {
			st.names = append(st.names[:i], st.names[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries
func (st *SymbolTable) Len() int {
	if st == nil {
		return 0
	}
	return len(st.names)
}

// Names returns the entry names in insertion order
func (st *SymbolTable) Names() []string {
	if st == nil {
		return nil
	}
	return append([]string(nil), st.names...)
}

// Each calls fn for every entry in insertion order until fn returns false
func (st *SymbolTable) Each(fn func(name string, node *SymbolTableNode) bool) {
	if st == nil {
		return
	}
	for _, name := range st.names {
		if !fn(name, st.entries[name]) {
			return
		}
	}
}

// Prefix returns everything before the last dot of a full name, which is the
// module (or class) that declares it
func Prefix(fullName string) string {
	if i := strings.LastIndex(fullName, "."); i >= 0 {
		return fullName[:i]
	}
	return fullName
}
