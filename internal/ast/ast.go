// Package ast defines the node model shared by the Spicy and HILTI
// front ends. All nodes are owned by a Context (see context.go); structural
// mutation happens only through replacement of a node in its parent.
package ast

import (
	"github.com/zeek/go-spicy/internal/diag"
	"github.com/zeek/go-spicy/internal/lexer"
)

// Node is the base interface for all AST entities.
type Node interface {
	// Pos returns the source position of the node for error reporting.
	Pos() lexer.Position

	// String returns a compact representation for debugging and testing.
	String() string

	// Base returns the node's shared bookkeeping (errors, scope, original).
	Base() *NodeBase
}

// NodeBase carries the side tables every node may have: the source location,
// attached errors, an optional scope, and a back-reference to the node this
// one replaced during a pass.
type NodeBase struct {
	Location lexer.Position
	Errors   []diag.Error
	Scope    *Scope
	Original Node
}

func (b *NodeBase) Pos() lexer.Position { return b.Location }
func (b *NodeBase) Base() *NodeBase     { return b }

// AddError attaches a diagnostic to the node.
func (b *NodeBase) AddError(err diag.Error) {
	b.Errors = append(b.Errors, err)
}

// Expression is a node that produces a value. Type() returns the qualified
// type once known; before that it is nil.
type Expression interface {
	Node
	expressionNode()
	Type() *QualifiedType
}

// Statement is a node that performs an action without producing a value.
type Statement interface {
	Node
	statementNode()
}

// Declaration introduces a name. Every declaration has an ID, a linkage, and
// once registered with the context, a DeclarationIndex.
type Declaration interface {
	Node
	declarationNode()
	DeclID() ID
	Linkage() Linkage
	Index() DeclarationIndex
	setIndex(DeclarationIndex)
}

// Linkage describes the visibility of a declaration.
type Linkage int

const (
	Private Linkage = iota
	Public
	Export
)

func (l Linkage) String() string {
	switch l {
	case Public:
		return "public"
	case Export:
		return "export"
	default:
		return "private"
	}
}

// DeclarationIndex is a stable, context-assigned reference to a declaration.
// Zero means "none".
type DeclarationIndex int

// TypeIndex is a stable, context-assigned reference to an unqualified type.
// Zero means "none".
type TypeIndex int

// DeclBase is the embeddable common part of declarations.
type DeclBase struct {
	NodeBase
	ID_        ID
	Canonical  ID // context-assigned fully qualified ID, unique per context
	Linkage_   Linkage
	Attributes *AttributeSet
	index      DeclarationIndex
}

func (d *DeclBase) declarationNode()          {}
func (d *DeclBase) DeclID() ID                { return d.ID_ }
func (d *DeclBase) Linkage() Linkage          { return d.Linkage_ }
func (d *DeclBase) Index() DeclarationIndex   { return d.index }
func (d *DeclBase) setIndex(i DeclarationIndex) { d.index = i }

// CanonicalID returns the fully qualified name of the declaration if one has
// been assigned, else its plain ID.
func (d *DeclBase) CanonicalID() ID {
	if d.Canonical != "" {
		return d.Canonical
	}
	return d.ID_
}
