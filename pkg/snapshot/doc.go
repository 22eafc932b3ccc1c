// Package snapshot compares two versions of a module symbol table and finds
// the declarations with externally visible changes.
//
// SymbolTable converts a live symbol table (and the types it references) into
// an immutable Table. Diff compares two such tables taken for the same module
// and returns the fully-qualified names that differ. Those names act as
// triggers: only the dependents of a triggered name need to be processed
// again.
//
// Summary of what counts as a difference:
//
//   - A name present in only one version.
//   - A name that refers to a different sort of thing (a class replaced by a
//     function, say).
//   - A changed function signature, including argument names and kinds of
//     functions that have no type yet.
//   - A changed variable type.
//   - A change to a major class attribute (MRO, type variables, bases, flags,
//     tuple or TypedDict backing). Changes to members trigger the member name
//     ('mod.Cls.method'), not the class.
//   - An import whose target name changed. If the target of 'from x import y'
//     keeps its name but 'x.y' itself changes, 'm.y' is not considered
//     changed; that is handled through fine-grained dependencies instead.
package snapshot
