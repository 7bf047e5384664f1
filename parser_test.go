package casec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func parseExprSrc(t *testing.T, src string) *Node {
	t.Helper()
	toks, err := Tokenize(src)
	require.NoError(t, err)
	p := NewParser(toks)
	n, err := p.parseExpr()
	require.NoError(t, err)
	return n
}

// leafTexts collects every literal/identifier leaf's payload in
// left-to-right order, skipping synthetic structural nodes, for the
// parser round-trip property (spec.md §8).
func leafTexts(root *Node) []string {
	var out []string
	Walk(root, func(n *Node) bool {
		if n.IsSynthetic() {
			return true
		}
		switch n.Kind {
		case KindIdentifier, KindNumberLit, KindStringLit:
			out = append(out, n.Payload)
		}
		return true
	})
	return out
}

func TestParserExpressionPrecedence(t *testing.T) {
	n := parseExprSrc(t, "2 + 3 * 4")
	require.Equal(t, KindBinOp, n.Kind)
	require.Equal(t, "+", n.Payload)
	require.Equal(t, "2", n.Child(0).Payload)
	require.Equal(t, KindBinOp, n.Child(1).Kind)
	require.Equal(t, "*", n.Child(1).Payload)
	require.Equal(t, []string{"2", "3", "4"}, leafTexts(n))
}

func TestParserLogicalPrecedence(t *testing.T) {
	n := parseExprSrc(t, "a || b && c")
	require.Equal(t, "||", n.Payload)
	require.Equal(t, "&&", n.Child(1).Payload)
}

func TestParserTernary(t *testing.T) {
	n := parseExprSrc(t, "a > 0 ? 1 : -1")
	require.Equal(t, KindTernary, n.Kind)
	require.Equal(t, KindBinOp, n.Child(0).Kind)
}

func TestParserUnaryAndPostfix(t *testing.T) {
	n := parseExprSrc(t, "-f(1, 2).field[0]")
	require.Equal(t, KindUnOp, n.Kind)
	idx := n.Child(0)
	require.Equal(t, KindIndex, idx.Kind)
	member := idx.Child(0)
	require.Equal(t, KindMember, member.Kind)
	require.Equal(t, "field", member.Payload)
	call := member.Child(0)
	require.Equal(t, KindCallExpr, call.Kind)
	require.Len(t, call.Children, 3) // callee + 2 args
}

func TestParserLetAndAssign(t *testing.T) {
	root, err := ParseSource(`let a = 2+3
let b = a*0
a = a + 1
a += 1
a++`)
	require.NoError(t, err)
	require.Equal(t, KindProgram, root.Kind)
	require.Len(t, root.Children, 5)
	require.Equal(t, KindLet, root.Children[0].Kind)
	require.Equal(t, "a", root.Children[0].Payload)
	require.Equal(t, KindAssign, root.Children[2].Kind)
	require.Equal(t, KindCompoundAssign, root.Children[3].Kind)
	require.Equal(t, KindCompoundAssign, root.Children[4].Kind)
	require.Equal(t, "+=", root.Children[4].Payload)
	require.Equal(t, "1", root.Children[4].Child(1).Payload)
}

func TestParserIfElseChain(t *testing.T) {
	root, err := ParseSource(`if a > 0 {
  Print "pos"
} else if a < 0 {
  Print "neg"
} else {
  Print "zero"
}`)
	require.NoError(t, err)
	ifNode := root.Children[0]
	require.Equal(t, KindIf, ifNode.Kind)
	elseNode := ifNode.ChildOfKind(KindElse)
	require.NotNil(t, elseNode)
	require.Equal(t, KindIf, elseNode.Child(0).Kind)
}

func TestParserWhileAndLoop(t *testing.T) {
	root, err := ParseSource(`while a < 10 {
  a = a + 1
}
loop "int i = 0; i < 10; i++" {
  Print i
}`)
	require.NoError(t, err)
	require.Equal(t, KindWhile, root.Children[0].Kind)
	loopNode := root.Children[1]
	require.Equal(t, KindLoop, loopNode.Kind)
	require.Equal(t, "int i = 0; i < 10; i++", loopNode.Payload)
}

func TestParserFnWithQuotedParamsAndOverlay(t *testing.T) {
	root, err := ParseSource(`overlay nonneg_n
Fn f "int n" {
  ret n
}`)
	require.NoError(t, err)
	fn := root.Children[0]
	require.Equal(t, KindFn, fn.Kind)
	require.Equal(t, "f", fn.Payload)
	params := fn.ChildOfKind(KindParams)
	require.NotNil(t, params)
	require.Equal(t, "n", params.Children[0].Payload)
	require.Equal(t, "int", params.Children[0].ChildOfKind(KindReturnType).Payload)
	overlay := fn.ChildOfKind(KindOverlay)
	require.NotNil(t, overlay)
	require.Equal(t, "nonneg_n", overlay.Payload)
}

func TestParserCallStatement(t *testing.T) {
	root, err := ParseSource(`call f -1`)
	require.NoError(t, err)
	call := root.Children[0]
	require.Equal(t, KindCall, call.Kind)
	require.Equal(t, "f", call.Payload)
	require.Len(t, call.Children, 1)
	require.Equal(t, KindUnOp, call.Children[0].Kind)
}

func TestParserClassWithAccessLabelsAndExtends(t *testing.T) {
	root, err := ParseSource(`class Derived extends Base {
public:
  let x = 1
  Fn get { ret x }
}`)
	require.NoError(t, err)
	cls := root.Children[0]
	require.Equal(t, KindClass, cls.Kind)
	require.Equal(t, "Derived", cls.Payload)
	bases := cls.ChildOfKind(KindBaseList)
	require.NotNil(t, bases)
	require.Equal(t, "Base", bases.Children[0].Payload)
	require.NotNil(t, cls.ChildOfKind(KindAccessLabel))
	require.NotNil(t, cls.ChildOfKind(KindFn))
}

func TestParserMatchWithAlternatives(t *testing.T) {
	root, err := ParseSource(`match x {
case 1 | 2 {
  Print "small"
}
default {
  Print "other"
}
}`)
	require.NoError(t, err)
	m := root.Children[0]
	require.Equal(t, KindMatch, m.Kind)
	require.Len(t, m.Children, 3) // scrutinee + arm + default
	arm := m.Children[1]
	require.Equal(t, KindMatchArm, arm.Kind)
	require.Len(t, arm.Children, 3) // 2 patterns + body
}

func TestParserTryCatch(t *testing.T) {
	root, err := ParseSource(`try {
  throw "boom"
} catch (e) {
  Print e
}`)
	require.NoError(t, err)
	tryNode := root.Children[0]
	require.Equal(t, KindTry, tryNode.Kind)
	catch := tryNode.ChildOfKind(KindCatch)
	require.NotNil(t, catch)
	require.Equal(t, "e", catch.Payload)
}

func TestParserBooleanLiteralsLowerToNumeric(t *testing.T) {
	n := parseExprSrc(t, "true")
	require.Equal(t, KindNumberLit, n.Kind)
	require.Equal(t, "1", n.Payload)
	n2 := parseExprSrc(t, "false")
	require.Equal(t, "0", n2.Payload)
}

func TestParserRejectsNonLiteralCaseValue(t *testing.T) {
	_, err := ParseSource(`switch x {
case y:
  Print "bad"
}`)
	require.Error(t, err)
}
