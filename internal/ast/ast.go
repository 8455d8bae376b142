// Package ast defines the expression tree of the query language and the
// types the resolver attaches to it.
package ast

// Node is the base interface for all AST nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes. Every expression
// carries the type assigned by the resolver, nil until resolution.
//
//sumtype:decl
type Expr interface {
	Node
	exprNode()
	ResolvedType() Type
	SetType(Type)
}

// Typed holds the resolved type of an expression.
type Typed struct {
	Type Type
}

// ResolvedType returns the type attached by the resolver.
func (t *Typed) ResolvedType() Type { return t.Type }

// SetType attaches a resolved type.
func (t *Typed) SetType(typ Type) { t.Type = typ }
