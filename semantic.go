package casec

// scope is one level of the weak-typing environment: variable name to
// inferred type, plus the parallel non-negativity lattice state used by
// the nonneg checker (spec.md §4.5).
type scope struct {
	types  map[string]string
	nonneg map[string]NonnegState
}

func newScope() *scope {
	return &scope{types: map[string]string{}, nonneg: map[string]NonnegState{}}
}

// Analyzer runs the two-stage (weak then strong) semantic pass over a
// parsed program, collecting every violation instead of stopping at the
// first one, matching spec.md §4.5's "aggregate, don't abort" contract.
type Analyzer struct {
	overlays *OverlayTable
	scopes   []*scope
	errs     []SemanticError
}

// Analyze type-checks and contract-checks root, returning a
// SemanticValidationFailed wrapping every accumulated error, or nil if
// the program is clean.
func Analyze(root *Node, overlays *OverlayTable) error {
	a := &Analyzer{overlays: overlays}
	a.push()
	a.walkBody(root)
	a.pop()
	if len(a.errs) > 0 {
		return SemanticValidationFailed{Errors: a.errs}
	}
	return nil
}

func (a *Analyzer) push() { a.scopes = append(a.scopes, newScope()) }
func (a *Analyzer) pop()  { a.scopes = a.scopes[:len(a.scopes)-1] }

func (a *Analyzer) top() *scope { return a.scopes[len(a.scopes)-1] }

func (a *Analyzer) lookupType(name string) string {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if t, ok := a.scopes[i].types[name]; ok {
			return t
		}
	}
	return TypeUnknown
}

func (a *Analyzer) lookupNonneg(name string) NonnegState {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if s, ok := a.scopes[i].nonneg[name]; ok {
			return s
		}
	}
	return NonnegUnknown
}

func (a *Analyzer) bind(name, typ string, ns NonnegState) {
	a.top().types[name] = typ
	a.top().nonneg[name] = ns
}

// rebindIfIdentifier updates target's type and nonneg state in whichever
// scope already declared it, leaving other scopes untouched. Non-identifier
// assignment targets (member/index expressions) carry no tracked state.
func (a *Analyzer) rebindIfIdentifier(target *Node, typ string, ns NonnegState) {
	if target == nil || target.Kind != KindIdentifier {
		return
	}
	name := target.Payload
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if _, ok := a.scopes[i].types[name]; ok {
			a.scopes[i].types[name] = typ
			a.scopes[i].nonneg[name] = ns
			return
		}
	}
	a.bind(name, typ, ns)
}

func (a *Analyzer) fail(kind string, line int, msg string) {
	a.errs = append(a.errs, SemanticError{Kind: kind, Line: line, Message: msg})
}

// walkBody visits every statement in a Body/Program node in order.
func (a *Analyzer) walkBody(n *Node) {
	for _, stmt := range n.Children {
		a.walkStmt(stmt)
	}
}

func (a *Analyzer) walkStmt(n *Node) {
	switch n.Kind {
	case KindLet:
		expr := n.Child(0)
		typ := a.inferType(expr)
		ns := evalNonneg(expr, a.currentNonnegEnv())
		a.bind(n.Payload, typ, ns)

	case KindIf:
		a.inferType(n.ChildOfKind(KindCond).Child(0))
		a.push()
		a.walkBody(n.ChildOfKind(KindBody))
		a.pop()
		if elseN := n.ChildOfKind(KindElse); elseN != nil {
			a.push()
			if inner := elseN.Child(0); inner != nil && inner.Kind == KindBody {
				a.walkBody(inner)
			} else {
				a.walkBody(elseN)
			}
			a.pop()
		}

	case KindWhile:
		a.inferType(n.ChildOfKind(KindCond).Child(0))
		a.push()
		a.walkBody(n.ChildOfKind(KindBody))
		a.pop()

	case KindLoop, KindSchedule:
		a.push()
		for _, c := range n.Children {
			if c.Kind == KindBody {
				a.walkBody(c)
			}
		}
		a.pop()

	case KindSwitch, KindMatch:
		a.inferType(n.Child(0))
		for _, c := range n.Children[1:] {
			a.push()
			if body := c.ChildOfKind(KindBody); body != nil {
				a.walkBody(body)
			}
			a.pop()
		}

	case KindTry:
		a.push()
		a.walkBody(n.Child(0))
		a.pop()
		if catch := n.ChildOfKind(KindCatch); catch != nil {
			a.push()
			if catch.Payload != "" {
				a.bind(catch.Payload, TypeUnknown, NonnegUnknown)
			}
			a.walkBody(catch.Child(0))
			a.pop()
		}

	case KindFn:
		a.analyzeFn(n)

	case KindClass, KindStruct:
		a.push()
		for _, c := range n.Children {
			if c.Kind == KindFn {
				a.analyzeFn(c)
			}
		}
		a.pop()

	case KindAssign:
		a.inferType(n.Child(0))
		rt := a.inferType(n.Child(1))
		a.rebindIfIdentifier(n.Child(0), rt, evalNonneg(n.Child(1), a.currentNonnegEnv()))

	case KindCompoundAssign:
		lt := a.inferType(n.Child(0))
		a.inferType(n.Child(1))
		var ns NonnegState
		if n.Payload == "+=" {
			env := a.currentNonnegEnv()
			lhsName := ""
			if n.Child(0).Kind == KindIdentifier {
				lhsName = n.Child(0).Payload
			}
			if env[lhsName] == NonnegTrue && evalNonneg(n.Child(1), env) == NonnegTrue {
				ns = NonnegTrue
			} else {
				ns = NonnegUnknown
			}
		} else {
			ns = NonnegUnknown
		}
		a.rebindIfIdentifier(n.Child(0), lt, ns)

	case KindBounds:
		ns := NonnegUnknown
		if evalNonneg(n.Child(0), a.currentNonnegEnv()) == NonnegTrue {
			ns = NonnegTrue
		}
		a.bind(n.Payload, a.lookupType(n.Payload), ns)

	case KindExprStmt:
		a.inferType(n.Child(0))

	case KindCall:
		a.checkCallArgs(n.Payload, n.Children, n.Line)

	case KindRet, KindThrow, KindPrint, KindSend, KindMutate:
		for _, c := range n.Children {
			a.inferType(c)
		}

	default:
		// The remaining statements (Break, Continue, Open, Close, Read,
		// Write*, Input, Recv, Channel, Sync, Checkpoint, VBreak, Scale,
		// Splice, Duration, Derivative) get no further analysis here; the
		// operand expressions of Write*, Scale, Duration and Derivative
		// are not type-checked.
	}
}

func (a *Analyzer) currentNonnegEnv() map[string]NonnegState {
	env := map[string]NonnegState{}
	for _, s := range a.scopes {
		for k, v := range s.nonneg {
			env[k] = v
		}
	}
	return env
}

func (a *Analyzer) analyzeFn(fn *Node) {
	info := a.overlays.Funcs[fn.Payload]
	a.push()
	if params := fn.ChildOfKind(KindParams); params != nil {
		for _, p := range params.Children {
			typ := TypeUnknown
			if rt := p.ChildOfKind(KindReturnType); rt != nil && rt.Payload != "" {
				typ = rt.Payload
			}
			ns := NonnegUnknown
			if info != nil && info.NonnegArgs[p.Payload] {
				ns = NonnegTrue
			}
			a.bind(p.Payload, typ, ns)
		}
	}
	body := fn.ChildOfKind(KindBody)
	a.walkBody(body)
	if info != nil && info.Pure {
		a.checkPurity(fn, body)
	}
	a.pop()
}

// checkPurity rejects any side-effecting construct inside a function
// carrying the `pure` overlay (spec.md §4.4, §7): a plain side effect is
// PureFunctionSideEffect, assigning to a parameter is
// PureParameterAssignment, and calling a non-pure function is
// PureCallsImpure.
func (a *Analyzer) checkPurity(fn, body *Node) {
	params := map[string]bool{}
	if pl := fn.ChildOfKind(KindParams); pl != nil {
		for _, p := range pl.Children {
			params[p.Payload] = true
		}
	}

	Walk(body, func(n *Node) bool {
		switch n.Kind {
		case KindAssign, KindCompoundAssign:
			if target := n.Child(0); target != nil && target.Kind == KindIdentifier && params[target.Payload] {
				a.fail("PureParameterAssignment", n.Line, "function "+fn.Payload+" is marked pure but assigns to parameter "+target.Payload)
			} else {
				a.fail("PureFunctionSideEffect", n.Line, "function "+fn.Payload+" is marked pure but contains a side effect")
			}
		case KindMutate:
			if params[n.Payload] {
				a.fail("PureParameterAssignment", n.Line, "function "+fn.Payload+" is marked pure but mutates parameter "+n.Payload)
			} else {
				a.fail("PureFunctionSideEffect", n.Line, "function "+fn.Payload+" is marked pure but contains a side effect")
			}
		case KindCall, KindCallExpr:
			callee := n.Payload
			if n.Kind == KindCallExpr {
				if c := n.Child(0); c != nil && c.Kind == KindIdentifier {
					callee = c.Payload
				}
			}
			if callee != "" {
				if calleeInfo := a.overlays.Funcs[callee]; calleeInfo == nil || !calleeInfo.Pure {
					a.fail("PureCallsImpure", n.Line, "function "+fn.Payload+" is marked pure but calls non-pure function "+callee)
				}
			}
		case KindPrint, KindOpen, KindWrite, KindWriteln, KindRead, KindClose,
			KindInput, KindSend, KindRecv, KindChannel, KindSchedule, KindSync,
			KindCheckpoint, KindVBreak:
			a.fail("PureFunctionSideEffect", n.Line, "function "+fn.Payload+" is marked pure but contains a side effect")
		}
		return true
	})
}

// checkCallArgs reports NonNegArgumentNegative when an argument bound to a
// nonneg-contracted parameter of a call-statement target is provably
// negative at the call site; an argument of unknown sign is accepted.
func (a *Analyzer) checkCallArgs(name string, args []*Node, line int) {
	info := a.overlays.Funcs[name]
	if info == nil || len(info.NonnegArgs) == 0 {
		for _, arg := range args {
			a.inferType(arg)
		}
		return
	}
	params := info.Node.ChildOfKind(KindParams)
	env := a.currentNonnegEnv()
	for i, arg := range args {
		a.inferType(arg)
		if params == nil || i >= len(params.Children) {
			continue
		}
		paramName := params.Children[i].Payload
		if !info.NonnegArgs[paramName] {
			continue
		}
		if evalNonneg(arg, env) == NonnegFalse {
			a.fail("NonNegArgumentNegative", line, "argument "+paramName+" of "+name+" must be non-negative")
		}
	}
}

// inferType computes (and records, by side effect of descent) the static
// type of an expression, reporting OperatorOperandMismatch on any
// operator whose operand types are both known and incompatible.
func (a *Analyzer) inferType(n *Node) string {
	if n == nil {
		return TypeUnknown
	}
	switch n.Kind {
	case KindNumberLit:
		if isIntegral(n.Payload) {
			return TypeInt
		}
		return TypeFloat
	case KindStringLit:
		return TypeString
	case KindIdentifier:
		return a.lookupType(n.Payload)
	case KindUnOp:
		operand := a.inferType(n.Child(0))
		if n.Payload == "!" {
			return TypeBool
		}
		return operand
	case KindBinOp:
		lt := a.inferType(n.Child(0))
		rt := a.inferType(n.Child(1))
		res, ok := resultType(n.Payload, lt, rt)
		if !ok {
			a.fail("OperatorOperandMismatch", n.Line, "operator "+n.Payload+" cannot apply to "+lt+" and "+rt)
			return TypeUnknown
		}
		return res
	case KindTernary:
		a.inferType(n.Child(0))
		t1 := a.inferType(n.Child(1))
		t2 := a.inferType(n.Child(2))
		if t1 == t2 {
			return t1
		}
		return TypeUnknown
	case KindCallExpr:
		for _, c := range n.Children[1:] {
			a.inferType(c)
		}
		return TypeUnknown
	case KindIndex:
		a.inferType(n.Child(0))
		a.inferType(n.Child(1))
		return TypeUnknown
	case KindMember:
		a.inferType(n.Child(0))
		return TypeUnknown
	default:
		return TypeUnknown
	}
}
