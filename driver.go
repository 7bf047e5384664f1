package casec

import (
	"fmt"
	"strings"
)

// Result is everything one Compile call produces (spec.md SPEC_FULL
// §4.9): the emitted C++ text, an optional railroad diagram, the
// accumulated replay buffer, and any non-fatal diagnostics.
type Result struct {
	CppSource   string
	Diagram     string
	ReplayLog   []string
	Diagnostics []Diagnostic
}

// replayEntry formats one replay.txt line: "<phase>\t<payload>".
func replayEntry(phase, payload string) string {
	return phase + "\t" + payload
}

// Compile runs the full nine-phase pipeline over source, invoking reg's
// observers/transforms at the named phase boundaries (spec.md §4.7), and
// returns the aggregated Result. Mirrors api.go's GrammarFromBytes /
// GrammarTransformations sequential chaining rather than a memoizing
// query engine (see DESIGN.md).
func Compile(source string, cfg *Config, reg *Registry) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if reg == nil {
		reg = NewRegistry()
	}

	var diags []Diagnostic
	var replay []string

	preprocessed := Preprocess(source)

	toks, err := Tokenize(preprocessed)
	if err != nil {
		return nil, err
	}

	root, err := NewParser(toks).ParseProgram()
	if err != nil {
		return nil, err
	}

	overlays := CollectOverlays(root)

	// Feature flags are process-wide (spec.md §4.4/§4.7): any function
	// granting a capability turns it on for the whole compile. `audit`
	// is equivalent to `inspect`. Observers run under `inspect`/`replay`/
	// `audit`; transforms only under `mutate`; the replay buffer only
	// accumulates under `replay`.
	inspectOn := overlays.AnyFlag(func(f FeatureFlags) bool { return f.Inspect || f.Audit })
	replayOn := overlays.AnyFlag(func(f FeatureFlags) bool { return f.Replay })
	mutateOn := overlays.AnyFlag(func(f FeatureFlags) bool { return f.Mutate })
	observeOn := inspectOn || replayOn

	notify := func(phase string, payload interface{}) {
		if observeOn {
			reg.notify(phase, payload)
		}
	}
	record := func(phase string, payload func() string) {
		if replayOn {
			replay = append(replay, replayEntry(phase, payload()))
		}
	}
	transform := func(phase string, root *Node) *Node {
		if mutateOn {
			return reg.applyTransforms(phase, root)
		}
		return root
	}

	notify(PhaseTokens, toks)
	record(PhaseTokens, func() string { return fmt.Sprintf("%d tokens", len(toks)) })

	notify(PhaseParsed, root)
	record(PhaseParsed, root.String)

	if err := Analyze(root, overlays); err != nil {
		return nil, err
	}
	notify(PhaseAnalyzed, root)
	record(PhaseAnalyzed, root.String)

	root = transform(PhasePreOpt, root)
	notify(PhasePreOpt, root)
	record(PhasePreOpt, root.String)

	root = Optimize(root)
	notify(PhaseOptimized, root)
	record(PhaseOptimized, root.String)

	root = transform(PhasePostOpt, root)
	notify(PhasePostOpt, root)
	record(PhasePostOpt, root.String)

	notify(PhaseBeforeEmit, root)
	record(PhaseBeforeEmit, root.String)

	emitter := NewEmitter(cfg)
	cpp, err := emitter.Emit(root)
	if err != nil {
		return nil, err
	}
	notify(PhaseEmittedCpp, cpp)
	record(PhaseEmittedCpp, func() string { return cpp })

	notify(PhaseAfterEmit, cpp)
	record(PhaseAfterEmit, func() string { return "done" })

	result := &Result{CppSource: cpp, ReplayLog: replay}

	if cfg.TagEnabled("diagram") {
		result.Diagram = renderAllDiagrams(root)
	}

	if cfg.NoCompile {
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Phase:    "driver",
			Message:  "external compiler invocation skipped (CASEC_NO_COMPILE=1)",
		})
	}

	result.Diagnostics = diags
	return result, nil
}

// renderAllDiagrams builds one railroad diagram per top-level and
// per-class/struct-method Fn node, concatenated in source order.
func renderAllDiagrams(root *Node) string {
	var sb strings.Builder
	Walk(root, func(n *Node) bool {
		if n.Kind == KindFn {
			diagram, err := EmitRailroadDiagram(n)
			if err == nil {
				sb.WriteString(diagram)
				sb.WriteString("\n")
			}
		}
		return true
	})
	return sb.String()
}
