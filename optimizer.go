package casec

// maxOptimizeRounds bounds the fixed-point loop. Every scenario in
// spec.md §8 converges in 2 rounds; this is a generous backstop, not a
// tuned constant.
const maxOptimizeRounds = 16

// Optimize runs constant folding, peephole rewriting, and dead-code
// elimination to a fixed point (spec.md §4.6): each round folds whatever
// the previous round's rewrites exposed, stopping as soon as a round
// makes no change.
func Optimize(root *Node) *Node {
	for round := 0; round < maxOptimizeRounds; round++ {
		var changed bool
		root, changed = optimizeOnce(root)
		if !changed {
			break
		}
	}
	return root
}

func optimizeOnce(n *Node) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	changed := false
	for i, c := range n.Children {
		nc, ch := optimizeOnce(c)
		n.Children[i] = nc
		changed = changed || ch
	}

	switch n.Kind {
	case KindUnOp:
		if folded, ok := foldUnOp(n); ok {
			return folded, true
		}
	case KindBinOp:
		if folded, ok := foldBinOp(n); ok {
			return folded, true
		}
		if rewritten, ok := peepholeBinOp(n); ok {
			return rewritten, true
		}
	case KindTernary:
		if folded, ok := foldTernary(n); ok {
			return folded, true
		}
	case KindBody:
		if eliminateDeadCode(n) {
			changed = true
		}
	}
	return n, changed
}

func foldUnOp(n *Node) (*Node, bool) {
	operand := n.Child(0)
	if n.Payload == "-" && operand.Kind == KindNumberLit {
		v, ok := parseNumberLit(operand.Payload)
		if !ok {
			return nil, false
		}
		return NewNode(KindNumberLit, formatNumber(-v), n.Line), true
	}
	if n.Payload == "!" && operand.Kind == KindNumberLit {
		v, ok := parseNumberLit(operand.Payload)
		if !ok {
			return nil, false
		}
		if v == 0 {
			return NewNode(KindNumberLit, "1", n.Line), true
		}
		return NewNode(KindNumberLit, "0", n.Line), true
	}
	return nil, false
}

func foldBinOp(n *Node) (*Node, bool) {
	l, r := n.Child(0), n.Child(1)

	if n.Payload == "+" && l.Kind == KindStringLit && r.Kind == KindStringLit {
		return NewNode(KindStringLit, l.Payload+r.Payload, n.Line), true
	}

	if l.Kind != KindNumberLit || r.Kind != KindNumberLit {
		return nil, false
	}
	lv, ok1 := parseNumberLit(l.Payload)
	rv, ok2 := parseNumberLit(r.Payload)
	if !ok1 || !ok2 {
		return nil, false
	}

	switch n.Payload {
	case "+":
		return NewNode(KindNumberLit, formatNumber(lv+rv), n.Line), true
	case "-":
		return NewNode(KindNumberLit, formatNumber(lv-rv), n.Line), true
	case "*":
		return NewNode(KindNumberLit, formatNumber(lv*rv), n.Line), true
	case "/":
		if rv == 0 {
			return NewNode(KindNumberLit, "0", n.Line), true
		}
		return NewNode(KindNumberLit, formatNumber(lv/rv), n.Line), true
	case "%":
		if rv == 0 {
			return nil, false
		}
		return NewNode(KindNumberLit, formatNumber(float64(int64(lv)%int64(rv))), n.Line), true
	case "==":
		return boolLit(lv == rv, n.Line), true
	case "!=":
		return boolLit(lv != rv, n.Line), true
	case "<":
		return boolLit(lv < rv, n.Line), true
	case ">":
		return boolLit(lv > rv, n.Line), true
	case "<=":
		return boolLit(lv <= rv, n.Line), true
	case ">=":
		return boolLit(lv >= rv, n.Line), true
	case "&&":
		return boolLit(lv != 0 && rv != 0, n.Line), true
	case "||":
		return boolLit(lv != 0 || rv != 0, n.Line), true
	default:
		return nil, false
	}
}

func boolLit(v bool, line int) *Node {
	if v {
		return NewNode(KindNumberLit, "1", line)
	}
	return NewNode(KindNumberLit, "0", line)
}

// peepholeBinOp applies algebraic identities that don't require both
// operands to be constant: x+0, 0+x, x-0, x*1, 1*x, x/1 -> x; x*0, 0*x -> 0.
func peepholeBinOp(n *Node) (*Node, bool) {
	l, r := n.Child(0), n.Child(1)
	isZero := func(c *Node) bool {
		if c.Kind != KindNumberLit {
			return false
		}
		v, ok := parseNumberLit(c.Payload)
		return ok && v == 0
	}
	isOne := func(c *Node) bool {
		if c.Kind != KindNumberLit {
			return false
		}
		v, ok := parseNumberLit(c.Payload)
		return ok && v == 1
	}

	switch n.Payload {
	case "+":
		if isZero(r) {
			return l, true
		}
		if isZero(l) {
			return r, true
		}
	case "-":
		if isZero(r) {
			return l, true
		}
	case "*":
		if isZero(l) || isZero(r) {
			return NewNode(KindNumberLit, "0", n.Line), true
		}
		if isOne(r) {
			return l, true
		}
		if isOne(l) {
			return r, true
		}
	case "/":
		if isOne(r) {
			return l, true
		}
	}
	return nil, false
}

func foldTernary(n *Node) (*Node, bool) {
	cond := n.Child(0)
	if cond.Kind != KindNumberLit {
		return nil, false
	}
	v, ok := parseNumberLit(cond.Payload)
	if !ok {
		return nil, false
	}
	if v != 0 {
		return n.Child(1).Clone(), true
	}
	return n.Child(2).Clone(), true
}

// terminalStmt reports whether a statement unconditionally transfers
// control out of its enclosing body, making anything after it dead.
func terminalStmt(n *Node) bool {
	switch n.Kind {
	case KindRet, KindBreak, KindContinue, KindThrow:
		return true
	default:
		return false
	}
}

// eliminateDeadCode truncates a Body's statement list right after the
// first unconditionally-terminal statement.
func eliminateDeadCode(body *Node) bool {
	for i, stmt := range body.Children {
		if terminalStmt(stmt) && i < len(body.Children)-1 {
			body.Children = body.Children[:i+1]
			return true
		}
	}
	return false
}
