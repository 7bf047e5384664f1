package casec

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Emitter walks an optimized, analyzed tree and renders it as C++ text
// (spec.md §4.8). Grounded on genc.go's cEvalEmitter: a thin struct
// wrapping an outputWriter plus per-construct write* methods, rather
// than a template engine.
type Emitter struct {
	cfg *Config
	out *outputWriter
}

// NewEmitter returns an Emitter configured for one compilation's Config.
func NewEmitter(cfg *Config) *Emitter {
	return &Emitter{cfg: cfg, out: newOutputWriter("    ")}
}

// Emit renders root's whole program: metadata banner, fixed prelude,
// declarations, then a main() body built from every remaining top-level
// statement in source order.
func (e *Emitter) Emit(root *Node) (string, error) {
	e.writeMetadataBanner(root)
	e.out.writel(fixedIncludes)
	e.out.writel(channelTemplate)
	e.out.writel(schedulerTemplate)

	var mainStmts []*Node
	for _, c := range root.Children {
		switch c.Kind {
		case KindFn:
			if err := e.emitFn(c); err != nil {
				return "", err
			}
		case KindClass, KindStruct:
			if err := e.emitClassOrStruct(c); err != nil {
				return "", err
			}
		default:
			mainStmts = append(mainStmts, c)
		}
	}

	e.out.writel("int main() {")
	e.out.indent()
	for _, s := range mainStmts {
		if err := e.emitStmt(s); err != nil {
			return "", err
		}
	}
	e.out.writeil("return 0;")
	e.out.unindent()
	e.out.writel("}")

	return e.out.String(), nil
}

func (e *Emitter) writeMetadataBanner(root *Node) {
	meta := map[string]string{
		"source": e.cfg.SourcePath,
		"std":    e.cfg.Std,
		"opt":    e.cfg.Opt,
	}
	for k, v := range e.cfg.Tags {
		meta["tag."+k] = v
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]string, len(meta))
	for _, k := range keys {
		ordered[k] = meta[k]
	}
	blob, _ := json.Marshal(ordered)
	e.out.writel("// casec build metadata")
	e.out.writel(fmt.Sprintf("// %s", string(blob)))
	e.out.writel("")
}

// --- declarations ---

func (e *Emitter) emitOverlayComment(fn *Node) {
	overlays := fn.ChildrenOfKind(KindOverlay)
	if len(overlays) == 0 {
		return
	}
	names := make([]string, 0, len(overlays))
	for _, ov := range overlays {
		names = append(names, ov.Payload)
	}
	e.out.writeil("// overlay: " + strings.Join(names, ", "))
}

func (e *Emitter) emitFn(fn *Node) error {
	e.emitOverlayComment(fn)

	retType := "void"
	if rt := fn.ChildOfKind(KindReturnType); rt != nil && rt.Payload != "" {
		retType = rt.Payload
	} else if fn.ChildOfKind(KindBody) != nil && containsReturnValue(fn.ChildOfKind(KindBody)) {
		retType = "auto"
	}

	params := fn.ChildOfKind(KindParams)
	var parts []string
	if params != nil {
		for _, p := range params.Children {
			typ := "auto"
			if rt := p.ChildOfKind(KindReturnType); rt != nil && rt.Payload != "" {
				typ = rt.Payload
			}
			parts = append(parts, typ+" "+p.Payload)
		}
	}

	e.out.writeil(fmt.Sprintf("%s %s(%s) {", retType, fn.Payload, strings.Join(parts, ", ")))
	e.out.indent()
	body := fn.ChildOfKind(KindBody)
	if body != nil {
		for _, s := range body.Children {
			if err := e.emitStmt(s); err != nil {
				return err
			}
		}
	}
	e.out.unindent()
	e.out.writel("}")
	e.out.writel("")
	return nil
}

func containsReturnValue(body *Node) bool {
	found := false
	Walk(body, func(n *Node) bool {
		if n.Kind == KindRet && len(n.Children) > 0 {
			found = true
		}
		return true
	})
	return found
}

func (e *Emitter) emitClassOrStruct(n *Node) error {
	keyword := "struct"
	if n.Kind == KindClass {
		keyword = "class"
	}
	header := keyword + " " + n.Payload
	if bases := n.ChildOfKind(KindBaseList); bases != nil && len(bases.Children) > 0 {
		var basesText []string
		for _, b := range bases.Children {
			basesText = append(basesText, "public "+b.Payload)
		}
		header += " : " + strings.Join(basesText, ", ")
	}
	e.out.writeil(header + " {")
	e.out.indent()
	for _, c := range n.Children {
		switch c.Kind {
		case KindAccessLabel:
			e.out.unindent()
			e.out.writeil(c.Payload + ":")
			e.out.indent()
		case KindFn:
			if err := e.emitFn(c); err != nil {
				return err
			}
		case KindLet:
			typ := "auto"
			e.out.writeil(fmt.Sprintf("%s %s = %s;", typ, c.Payload, e.emitExpr(c.Child(0))))
		}
	}
	e.out.unindent()
	e.out.writel("};")
	e.out.writel("")
	return nil
}

// --- statements ---

func (e *Emitter) emitStmt(n *Node) error {
	switch n.Kind {
	case KindLet:
		e.out.writeil(fmt.Sprintf("auto %s = %s;", n.Payload, e.emitExpr(n.Child(0))))
	case KindAssign:
		e.out.writeil(fmt.Sprintf("%s = %s;", e.emitExpr(n.Child(0)), e.emitExpr(n.Child(1))))
	case KindCompoundAssign:
		e.out.writeil(fmt.Sprintf("%s %s %s;", e.emitExpr(n.Child(0)), n.Payload, e.emitExpr(n.Child(1))))
	case KindExprStmt:
		e.out.writeil(e.emitExpr(n.Child(0)) + ";")

	case KindIf:
		return e.emitIf(n)
	case KindWhile:
		e.out.writeil(fmt.Sprintf("while (%s) {", e.emitExpr(n.ChildOfKind(KindCond).Child(0))))
		e.out.indent()
		if err := e.emitBodyStmts(n.ChildOfKind(KindBody)); err != nil {
			return err
		}
		e.out.unindent()
		e.out.writel("}")
	case KindLoop:
		return e.emitLoop(n)
	case KindSwitch:
		return e.emitGuardedBlock(n.Child(0), n.Children[1:])
	case KindMatch:
		return e.emitGuardedBlock(n.Child(0), n.Children[1:])
	case KindTry:
		return e.emitTry(n)
	case KindThrow:
		return e.emitThrow(n)
	case KindBreak:
		e.out.writeil("break;")
	case KindContinue:
		e.out.writeil("continue;")
	case KindRet:
		if len(n.Children) > 0 {
			e.out.writeil("return " + e.emitExpr(n.Child(0)) + ";")
		} else {
			e.out.writeil("return;")
		}

	case KindPrint:
		if len(n.Children) > 0 {
			operands := flattenPlusChain(n.Child(0))
			var parts []string
			for _, o := range operands {
				parts = append(parts, e.emitExpr(o))
			}
			e.out.writeil(fmt.Sprintf("std::cout << %s << std::endl;", strings.Join(parts, " << ")))
		} else {
			e.out.writeil("std::cout << std::endl;")
		}
	case KindOpen:
		path := e.emitExpr(n.Child(0))
		mode := fileModeFlags(n.Child(1).Payload)
		e.out.writeil(fmt.Sprintf("std::fstream %s(%s, %s);", n.Payload, path, mode))
	case KindWrite:
		if len(n.Children) > 0 {
			e.out.writeil(fmt.Sprintf("%s << %s;", n.Payload, e.emitExpr(n.Child(0))))
		}
	case KindWriteln:
		if len(n.Children) > 0 {
			e.out.writeil(fmt.Sprintf("%s << %s << std::endl;", n.Payload, e.emitExpr(n.Child(0))))
		} else {
			e.out.writeil(fmt.Sprintf("%s << std::endl;", n.Payload))
		}
	case KindRead:
		e.out.writeil(fmt.Sprintf("%s >> %s;", n.Payload, e.emitExpr(n.Child(0))))
	case KindClose:
		e.out.writeil(fmt.Sprintf("%s.close();", n.Payload))
	case KindInput:
		// DESIGN NOTES (c): `input <var>` reads std::cin with no open.
		e.out.writeil(fmt.Sprintf("std::cin >> %s;", n.Payload))
	case KindSend:
		e.out.writeil(fmt.Sprintf("%s.send(%s);", n.Payload, e.emitExpr(n.Child(0))))
	case KindRecv:
		e.out.writeil(fmt.Sprintf("auto %s = %s.recv();", n.Child(0).Payload, n.Payload))
	case KindChannel:
		e.out.writeil(fmt.Sprintf("Channel<%s> %s;", n.Child(0).Payload, n.Payload))
	case KindSchedule:
		return e.emitSchedule(n)
	case KindSync:
		e.out.writeil("// sync")
	case KindCheckpoint:
		e.out.unindent()
		e.out.writeil(sanitizeLabel(n.Payload) + ": ;")
		e.out.indent()
	case KindVBreak:
		e.out.writeil("goto " + sanitizeLabel(n.Payload) + ";")
	case KindMutate:
		if len(n.Children) > 0 {
			e.out.writeil(fmt.Sprintf("%s = %s;", n.Payload, e.emitExpr(n.Child(0))))
		}
	case KindScale:
		return e.emitScale(n)
	case KindBounds:
		e.out.writeil(fmt.Sprintf("%s = std::min(std::max(%s, %s), %s);",
			n.Payload, n.Payload, e.emitExpr(n.Child(0)), e.emitExpr(n.Child(1))))
	case KindSplice:
		e.out.writel(n.Payload)
	case KindDuration:
		return e.emitDuration(n)
	case KindDerivative:
		return e.emitDerivative(n)
	case KindCall:
		var args []string
		for _, a := range n.Children {
			args = append(args, e.emitExpr(a))
		}
		e.out.writeil(fmt.Sprintf("%s(%s);", n.Payload, strings.Join(args, ", ")))
	case KindFn, KindClass, KindStruct, KindOverlay:
		// Declarations nested in a block are emitted by their own
		// callers (emitFn / emitClassOrStruct); nothing to do here.
	default:
		return EmitError{Kind: "InvalidNodeShape", Line: n.Line, Message: "unexpected statement kind " + n.Kind.String()}
	}
	return nil
}

func (e *Emitter) emitBodyStmts(body *Node) error {
	if body == nil {
		return nil
	}
	for _, s := range body.Children {
		if err := e.emitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitIf(n *Node) error {
	cond := n.ChildOfKind(KindCond)
	body := n.ChildOfKind(KindBody)
	e.out.writeil(fmt.Sprintf("if (%s) {", e.emitExpr(cond.Child(0))))
	e.out.indent()
	if err := e.emitBodyStmts(body); err != nil {
		return err
	}
	e.out.unindent()
	if elseN := n.ChildOfKind(KindElse); elseN != nil {
		inner := elseN.Child(0)
		if inner.Kind == KindIf {
			e.out.writei("} else ")
			saved := e.out.indentLevel
			e.out.indentLevel = 0
			if err := e.emitIfInline(inner); err != nil {
				return err
			}
			e.out.indentLevel = saved
			return nil
		}
		e.out.writeil("} else {")
		e.out.indent()
		if err := e.emitBodyStmts(inner); err != nil {
			return err
		}
		e.out.unindent()
		e.out.writel("}")
		return nil
	}
	e.out.writel("}")
	return nil
}

// emitIfInline renders a chained `else if` without its own leading
// indent (the caller already wrote "} else ").
func (e *Emitter) emitIfInline(n *Node) error {
	cond := n.ChildOfKind(KindCond)
	body := n.ChildOfKind(KindBody)
	e.out.writel(fmt.Sprintf("if (%s) {", e.emitExpr(cond.Child(0))))
	e.out.indent()
	if err := e.emitBodyStmts(body); err != nil {
		return err
	}
	e.out.unindent()
	if elseN := n.ChildOfKind(KindElse); elseN != nil {
		inner := elseN.Child(0)
		if inner.Kind == KindIf {
			e.out.writei("} else ")
			return e.emitIfInline(inner)
		}
		e.out.writeil("} else {")
		e.out.indent()
		if err := e.emitBodyStmts(inner); err != nil {
			return err
		}
		e.out.unindent()
		e.out.writel("}")
		return nil
	}
	e.out.writel("}")
	return nil
}

// emitLoop renders `Loop "<header>"`: @omp/@vectorize/@unroll(N)
// annotations are stripped from the header and hoisted as pragmas above
// the for-loop (spec.md §4.8).
func (e *Emitter) emitLoop(n *Node) error {
	header, pragmas := stripLoopAnnotations(n.Payload)
	for _, pr := range pragmas {
		e.out.writeil(pr)
	}
	e.out.writeil(fmt.Sprintf("for (%s) {", header))
	e.out.indent()
	if err := e.emitBodyStmts(n.ChildOfKind(KindBody)); err != nil {
		return err
	}
	e.out.unindent()
	e.out.writel("}")
	return nil
}

var loopAnnotation = regexp.MustCompile(`@(omp|vectorize|unroll)(\([^)]*\))?`)

func stripLoopAnnotations(header string) (string, []string) {
	var pragmas []string
	clean := loopAnnotation.ReplaceAllStringFunc(header, func(m string) string {
		switch {
		case strings.HasPrefix(m, "@omp"):
			pragmas = append(pragmas, "#pragma omp parallel for")
		case strings.HasPrefix(m, "@vectorize"):
			pragmas = append(pragmas, "#pragma GCC ivdep")
		case strings.HasPrefix(m, "@unroll"):
			n := "4"
			if open := strings.Index(m, "("); open >= 0 {
				n = m[open+1 : len(m)-1]
			}
			pragmas = append(pragmas, fmt.Sprintf("#pragma GCC unroll %s", n))
		}
		return ""
	})
	return strings.TrimSpace(clean), pragmas
}

// emitGuardedBlock renders both Switch and Match the same way (spec.md
// §4.8's Match rule: scoped block, fresh temporary, ordered guarded
// if-statements with a local boolean short-circuit flag, final default).
// Switch reuses it rather than emitting a native C++ switch so string
// case values (legal in CASE, illegal in a real switch) still compile.
func (e *Emitter) emitGuardedBlock(scrutinee *Node, arms []*Node) error {
	e.out.writeil("{")
	e.out.indent()
	e.out.writeil(fmt.Sprintf("auto&& __match_val = %s;", e.emitExpr(scrutinee)))
	e.out.writeil("bool __matched = false;")
	var defaultArm *Node
	for _, arm := range arms {
		if arm.Payload == "default" {
			defaultArm = arm
			continue
		}
		patterns := arm.Children[:len(arm.Children)-1]
		body := arm.Children[len(arm.Children)-1]
		var guards []string
		for _, pat := range patterns {
			if pat.Kind == KindPattern && pat.Payload == "_" {
				guards = append(guards, "true")
				continue
			}
			guards = append(guards, fmt.Sprintf("__match_val == %s", e.emitExpr(pat)))
		}
		e.out.writeil(fmt.Sprintf("if (!__matched && (%s)) {", strings.Join(guards, " || ")))
		e.out.indent()
		e.out.writeil("__matched = true;")
		if err := e.emitBodyStmts(body); err != nil {
			return err
		}
		e.out.unindent()
		e.out.writel("}")
	}
	if defaultArm != nil {
		body := defaultArm.Children[len(defaultArm.Children)-1]
		e.out.writeil("if (!__matched) {")
		e.out.indent()
		if err := e.emitBodyStmts(body); err != nil {
			return err
		}
		e.out.unindent()
		e.out.writel("}")
	}
	e.out.unindent()
	e.out.writel("}")
	return nil
}

func (e *Emitter) emitTry(n *Node) error {
	e.out.writeil("try {")
	e.out.indent()
	if err := e.emitBodyStmts(n.Child(0)); err != nil {
		return err
	}
	e.out.unindent()
	if catch := n.ChildOfKind(KindCatch); catch != nil {
		binding := catch.Payload
		if binding == "" {
			binding = "e"
		}
		e.out.writeil(fmt.Sprintf("} catch (const std::exception& %s) {", binding))
		e.out.indent()
		if err := e.emitBodyStmts(catch.Child(0)); err != nil {
			return err
		}
		e.out.unindent()
	}
	e.out.writel("}")
	return nil
}

func (e *Emitter) emitThrow(n *Node) error {
	expr := n.Child(0)
	if expr.Kind == KindStringLit {
		e.out.writeil(fmt.Sprintf("throw std::runtime_error(%s);", e.emitExpr(expr)))
		return nil
	}
	e.out.writeil(fmt.Sprintf("throw %s;", e.emitExpr(expr)))
	return nil
}

func (e *Emitter) emitSchedule(n *Node) error {
	prio := e.emitExpr(n.Child(0))
	body := n.Child(1)
	e.out.writeil("{")
	e.out.indent()
	e.out.writeil("Scheduler __sched;")
	e.out.writeil(fmt.Sprintf("__sched.schedule(%s, [&]() {", prio))
	e.out.indent()
	if err := e.emitBodyStmts(body); err != nil {
		return err
	}
	e.out.unindent()
	e.out.writeil("});")
	e.out.writeil("__sched.run();")
	e.out.unindent()
	e.out.writel("}")
	return nil
}

// emitScale renders `Scale x a b c d` as `x = ((x-a)/(b-a))*(d-c) + c;`
// guarded by a block scope (spec.md §4.8).
func (e *Emitter) emitScale(n *Node) error {
	a := e.emitExpr(n.Child(0))
	b := e.emitExpr(n.Child(1))
	c := e.emitExpr(n.Child(2))
	d := e.emitExpr(n.Child(3))
	x := n.Payload
	e.out.writeil("{")
	e.out.indent()
	e.out.writeil(fmt.Sprintf("%s = ((%s-%s)/(%s-%s))*(%s-%s) + %s;", x, x, a, b, a, d, c, c))
	e.out.unindent()
	e.out.writel("}")
	return nil
}

func (e *Emitter) emitDuration(n *Node) error {
	expr := e.emitExpr(n.Child(0))
	unit := n.Payload
	e.out.writeil("{")
	e.out.indent()
	ctype := chronoUnit(unit)
	if ctype == "" {
		e.out.writel(quantumEpochsAlias)
		e.out.writeil(fmt.Sprintf("quantum_epochs __duration(%s);", expr))
	} else {
		e.out.writeil(fmt.Sprintf("%s __duration(%s);", ctype, expr))
	}
	e.out.unindent()
	e.out.writel("}")
	return nil
}

var identWord = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// substituteIdent textually replaces whole-word occurrences of name in
// expr with replacement — the "formatted from string templates rather
// than reconstructed programmatically" technique spec.md §9 calls for in
// place of symbolic differentiation.
func substituteIdent(expr, name, replacement string) string {
	return identWord.ReplaceAllStringFunc(expr, func(w string) string {
		if w == name {
			return replacement
		}
		return w
	})
}

// emitDerivative renders a three-line numeric forward-difference with
// epsilon 1e-6 in a scoped block (spec.md §4.8).
func (e *Emitter) emitDerivative(n *Node) error {
	expr := e.emitExpr(n.Child(0))
	wrt := n.Payload
	e.out.writeil("{")
	e.out.indent()
	e.out.writeil("const double __eps = 1e-6;")
	if wrt == "" {
		e.out.writeil(fmt.Sprintf("auto __f0 = %s;", expr))
		e.out.writeil("auto __derivative = (__f0 - __f0) / __eps;")
	} else {
		shifted := substituteIdent(expr, wrt, "("+wrt+" + __eps)")
		e.out.writeil(fmt.Sprintf("auto __f0 = %s;", expr))
		e.out.writeil(fmt.Sprintf("auto __f1 = %s;", shifted))
		e.out.writeil("auto __derivative = (__f1 - __f0) / __eps;")
	}
	e.out.unindent()
	e.out.writel("}")
	return nil
}

func sanitizeLabel(name string) string {
	var b strings.Builder
	b.WriteString("checkpoint_")
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// --- expressions ---

// flattenPlusChain flattens a left-nested chain of top-level `+` BinOps
// into its leaf operands in left-to-right order, so Print can lower each
// operand to its own `<<` instead of emitting the whole chain as one
// string-concatenation expression (spec.md §4.8: "flattens `+` chains
// into a stream-insertion chain").
func flattenPlusChain(n *Node) []*Node {
	if n.Kind == KindBinOp && n.Payload == "+" {
		left := flattenPlusChain(n.Child(0))
		right := flattenPlusChain(n.Child(1))
		return append(left, right...)
	}
	return []*Node{n}
}

func (e *Emitter) emitExpr(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindNumberLit:
		return n.Payload
	case KindStringLit:
		return fmt.Sprintf("%q", n.Payload)
	case KindIdentifier:
		return n.Payload
	case KindUnOp:
		return n.Payload + "(" + e.emitExpr(n.Child(0)) + ")"
	case KindBinOp:
		return "(" + e.emitExpr(n.Child(0)) + " " + n.Payload + " " + e.emitExpr(n.Child(1)) + ")"
	case KindTernary:
		return "(" + e.emitExpr(n.Child(0)) + " ? " + e.emitExpr(n.Child(1)) + " : " + e.emitExpr(n.Child(2)) + ")"
	case KindCallExpr:
		callee := e.emitExpr(n.Child(0))
		var args []string
		for _, a := range n.Children[1:] {
			args = append(args, e.emitExpr(a))
		}
		return callee + "(" + strings.Join(args, ", ") + ")"
	case KindIndex:
		return e.emitExpr(n.Child(0)) + "[" + e.emitExpr(n.Child(1)) + "]"
	case KindMember:
		return e.emitExpr(n.Child(0)) + "." + n.Payload
	default:
		return ""
	}
}
