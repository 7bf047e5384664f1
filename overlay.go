package casec

// FeatureFlags records which overlay-granted capabilities apply to a
// single function (spec.md §4.4): inspect/replay/mutate/audit.
type FeatureFlags struct {
	Inspect bool
	Replay  bool
	Mutate  bool
	Audit   bool
}

// FuncInfo is what the overlay collector records about one Fn/routine
// node: its purity contract, its nonneg-constrained parameters, and its
// granted feature flags.
type FuncInfo struct {
	Node       *Node
	Name       string
	Pure       bool
	NonnegArgs map[string]bool // parameter name -> must-be-nonnegative
	Flags      FeatureFlags
	OverlayRaw []*Node
}

// OverlayTable maps function name to its collected overlay info. Built by
// a single pre-pass over the tree (CollectOverlays) before semantic
// analysis runs, mirroring the teacher's single-walk collection idiom in
// grammar_ast_visitor.go's Inspect-based walkers.
type OverlayTable struct {
	Funcs map[string]*FuncInfo
}

// CollectOverlays walks the whole program once, recording a FuncInfo for
// every Fn/routine node that carries at least a default (zero-value)
// entry, so lookups never need a second existence check downstream.
func CollectOverlays(root *Node) *OverlayTable {
	table := &OverlayTable{Funcs: map[string]*FuncInfo{}}
	Walk(root, func(n *Node) bool {
		if n.Kind == KindFn {
			table.Funcs[n.Payload] = buildFuncInfo(n)
		}
		return true
	})
	return table
}

func buildFuncInfo(fn *Node) *FuncInfo {
	info := &FuncInfo{
		Node:       fn,
		Name:       fn.Payload,
		NonnegArgs: map[string]bool{},
	}
	for _, ov := range fn.ChildrenOfKind(KindOverlay) {
		info.OverlayRaw = append(info.OverlayRaw, ov)
		switch {
		case ov.Payload == "pure":
			info.Pure = true
		case ov.Payload == "nonnegative":
			params := fn.ChildOfKind(KindParams)
			if params != nil {
				for _, p := range params.Children {
					info.NonnegArgs[p.Payload] = true
				}
			}
		case len(ov.Payload) > len("nonneg_") && ov.Payload[:len("nonneg_")] == "nonneg_":
			info.NonnegArgs[ov.Payload[len("nonneg_"):]] = true
		case ov.Payload == "inspect":
			info.Flags.Inspect = true
		case ov.Payload == "replay":
			info.Flags.Replay = true
		case ov.Payload == "mutate":
			info.Flags.Mutate = true
		case ov.Payload == "audit":
			info.Flags.Audit = true
		}
	}
	return info
}

// AnyFlag reports whether any collected function in the table carries the
// given capability — used by the driver to decide whether the replay
// buffer and plugin registry need to be engaged at all.
func (t *OverlayTable) AnyFlag(pick func(FeatureFlags) bool) bool {
	for _, info := range t.Funcs {
		if pick(info.Flags) {
			return true
		}
	}
	return false
}
