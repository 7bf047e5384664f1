package casec

import (
	"fmt"
	"strings"
)

// NodeKind is the closed set of tree node tags (spec.md §3/§4.3).
type NodeKind int

const (
	KindProgram NodeKind = iota
	KindLet
	KindIf
	KindCond
	KindBody
	KindElse
	KindWhile
	KindLoop
	KindSwitch
	KindCase
	KindMatch
	KindMatchArm
	KindPattern
	KindTry
	KindCatch
	KindThrow
	KindBreak
	KindContinue
	KindRet
	KindFn
	KindClass
	KindStruct
	KindBaseList
	KindAccessLabel
	KindParams
	KindParam
	KindOverlay
	KindReturnType
	KindPrint
	KindOpen
	KindWrite
	KindWriteln
	KindRead
	KindClose
	KindInput
	KindSend
	KindRecv
	KindChannel
	KindSchedule
	KindSync
	KindCheckpoint
	KindVBreak
	KindMutate
	KindScale
	KindBounds
	KindSplice
	KindDuration
	KindDerivative
	KindAssign
	KindCompoundAssign
	KindExprStmt
	KindCall
	KindCallExpr
	KindBinOp
	KindUnOp
	KindTernary
	KindIndex
	KindMember
	KindNumberLit
	KindStringLit
	KindIdentifier
)

var kindNames = map[NodeKind]string{
	KindProgram: "Program", KindLet: "Let", KindIf: "If", KindCond: "Cond",
	KindBody: "Body", KindElse: "Else", KindWhile: "While", KindLoop: "Loop",
	KindSwitch: "Switch", KindCase: "Case", KindMatch: "Match",
	KindMatchArm: "MatchArm", KindPattern: "Pattern", KindTry: "Try",
	KindCatch: "Catch", KindThrow: "Throw", KindBreak: "Break",
	KindContinue: "Continue", KindRet: "Ret", KindFn: "Fn", KindClass: "Class",
	KindStruct: "Struct", KindBaseList: "BaseList",
	KindAccessLabel: "AccessLabel", KindParams: "Params", KindParam: "Param",
	KindOverlay: "Overlay", KindReturnType: "ReturnType", KindPrint: "Print",
	KindOpen: "Open", KindWrite: "Write", KindWriteln: "Writeln",
	KindRead: "Read", KindClose: "Close", KindInput: "Input",
	KindSend: "Send", KindRecv: "Recv", KindChannel: "Channel",
	KindSchedule: "Schedule", KindSync: "Sync", KindCheckpoint: "Checkpoint",
	KindVBreak: "VBreak", KindMutate: "Mutate", KindScale: "Scale",
	KindBounds: "Bounds", KindSplice: "Splice", KindDuration: "Duration",
	KindDerivative: "Derivative", KindAssign: "Assign",
	KindCompoundAssign: "CompoundAssign", KindExprStmt: "ExprStmt",
	KindCall: "Call", KindCallExpr: "CallExpr", KindBinOp: "BinOp",
	KindUnOp: "UnOp", KindTernary: "Ternary", KindIndex: "Index",
	KindMember: "Member", KindNumberLit: "NumberLit",
	KindStringLit: "StringLit", KindIdentifier: "Identifier",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Node is the universal tree element (spec.md §3). Each node is owned
// exclusively by its parent; the root owns the whole tree. Children order
// is always semantically meaningful — e.g. a BinOp's first child is the
// left operand.
type Node struct {
	Kind     NodeKind
	Payload  string
	Children []*Node
	Line     int
}

// NewNode constructs a node with the given children, in order.
func NewNode(kind NodeKind, payload string, line int, children ...*Node) *Node {
	return &Node{Kind: kind, Payload: payload, Children: children, Line: line}
}

// Child returns the i'th child, or nil if out of range — callers use this
// for optional children (e.g. If's Else) rather than indexing directly.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// ChildOfKind returns the first direct child with the given kind, or nil.
func (n *Node) ChildOfKind(kind NodeKind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns every direct child with the given kind, in order.
func (n *Node) ChildrenOfKind(kind NodeKind) []*Node {
	var out []*Node
	if n == nil {
		return out
	}
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Clone deep-copies a node and all its children. Used by the optimizer's
// ternary-branch-selection fold, which must not let the folded tree and
// the discarded branch share storage.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	children := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = c.Clone()
	}
	return &Node{Kind: n.Kind, Payload: n.Payload, Children: children, Line: n.Line}
}

// String renders a compact s-expression form, used by tree-dump phase
// snapshots (the `replay` overlay) and by tests.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	var b strings.Builder
	n.writeTo(&b, 0)
	return b.String()
}

func (n *Node) writeTo(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Kind.String())
	if n.Payload != "" {
		fmt.Fprintf(b, "(%s)", n.Payload)
	}
	b.WriteString("\n")
	for _, c := range n.Children {
		c.writeTo(b, depth+1)
	}
}

// Visitor is invoked once per node during Walk, in pre-order. Returning
// false skips the node's children (mirrors go/grammar_ast_visitor.go's
// Inspect semantics).
type Visitor func(n *Node) bool

// Walk traverses the tree in depth-first pre-order, calling v for every
// node including n itself.
func Walk(n *Node, v Visitor) {
	if n == nil {
		return
	}
	if !v(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, v)
	}
}

// IsSynthetic reports whether n is a structural node (Cond, Body, Else,
// Params, BaseList) that carries no source text of its own. Used by the
// parser round-trip property in spec.md §8: in-order leaf concatenation
// recovers the original token sequence ignoring synthetic nodes.
func (n *Node) IsSynthetic() bool {
	switch n.Kind {
	case KindCond, KindBody, KindElse, KindParams, KindBaseList:
		return true
	default:
		return false
	}
}
