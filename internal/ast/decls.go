package ast

import "fmt"

// ConstantDecl is a module-level or local constant.
type ConstantDecl struct {
	DeclBase
	Ty    *QualifiedType
	Value Expression
}

func (d *ConstantDecl) String() string { return fmt.Sprintf("const %s", d.ID_) }

// GlobalVarDecl is a module-level variable.
type GlobalVarDecl struct {
	DeclBase
	Ty   *QualifiedType
	Init Expression
}

func (d *GlobalVarDecl) String() string { return fmt.Sprintf("global %s", d.ID_) }

// LocalVarDecl is a function- or hook-local variable.
type LocalVarDecl struct {
	DeclBase
	Ty   *QualifiedType
	Init Expression
}

func (d *LocalVarDecl) String() string { return fmt.Sprintf("local %s", d.ID_) }

// ParameterKind selects the passing convention of a parameter.
type ParameterKind int

const (
	ByValue ParameterKind = iota
	InOut
)

// ParameterDecl is a function, method, or unit parameter.
type ParameterDecl struct {
	DeclBase
	Ty      *QualifiedType
	Kind    ParameterKind
	Default Expression
}

func (d *ParameterDecl) String() string { return fmt.Sprintf("%s: %s", d.ID_, d.Ty) }

// FunctionDecl declares a plain function, hook, or method.
type FunctionDecl struct {
	DeclBase
	FuncType *FunctionType
	Body     *Block // nil for external (&cxxname) declarations
}

func (d *FunctionDecl) String() string { return fmt.Sprintf("%s %s", d.FuncType.Flavor, d.ID_) }

// TypeDecl binds a name to a type.
type TypeDecl struct {
	DeclBase
	Type Type
}

func (d *TypeDecl) String() string { return fmt.Sprintf("type %s", d.ID_) }

// ImportedModule records an import; once the import has been resolved,
// ModuleUID names the imported module instance.
type ImportedModule struct {
	DeclBase
	ImportID    ID
	SearchScope string
	ParseExt    string
	ModuleUID   UID
}

func (d *ImportedModule) String() string { return fmt.Sprintf("import %s", d.ImportID) }

// PropertyDecl is a module- or unit-level %property, possibly with a value.
type PropertyDecl struct {
	DeclBase
	Name  string // including the leading '%'
	Value Expression
}

func (d *PropertyDecl) String() string { return d.Name }

// FieldDecl is a struct (or union) field declaration. Unit fields compile
// down to these when the unit's struct representation is derived.
type FieldDecl struct {
	DeclBase
	Ty      *QualifiedType
	Default Expression
	// Static marks struct-level (per-type, not per-instance) fields.
	Static bool
}

func (d *FieldDecl) String() string { return fmt.Sprintf("%s: %s", d.ID_, d.Ty) }

// IsMethod reports whether the field declares a callable member.
func (d *FieldDecl) IsMethod() bool {
	_, ok := d.Ty.T.(*FunctionType)
	return ok
}
