package casec

// Phase names the driver announces its plugin hooks at (spec.md §4.7).
// Transforms are only honored at PhasePreOpt and PhasePostOpt; every
// other phase is observer-only.
const (
	PhaseTokens     = "tokens"
	PhaseParsed     = "parsed"
	PhaseAnalyzed   = "analyzed"
	PhasePreOpt     = "pre-opt"
	PhaseOptimized  = "optimized"
	PhasePostOpt    = "post-opt"
	PhaseBeforeEmit = "before-emit"
	PhaseEmittedCpp = "emitted-cpp"
	PhaseAfterEmit  = "after-emit"
)

// Observer is notified at a named phase with whatever payload that phase
// carries (a []Token at PhaseTokens, a string at PhaseEmittedCpp and
// PhaseAfterEmit, a *Node at every other phase). Observers
// never affect the pipeline; they exist for the `inspect`/`replay`
// overlays.
type Observer func(phase string, payload interface{})

// Transform rewrites the tree in place (or returns a replacement root)
// at PhasePreOpt or PhasePostOpt, for the `mutate` overlay.
type Transform func(root *Node) *Node

// Registry holds the plugins attached to one compilation. It is owned by
// the Driver invocation, never a package-level global (spec.md §9 DESIGN
// NOTES), so concurrent compiles never share plugin state.
type Registry struct {
	observers  map[string][]Observer
	transforms map[string][]Transform
}

// NewRegistry returns an empty, ready-to-use plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		observers:  map[string][]Observer{},
		transforms: map[string][]Transform{},
	}
}

// Observe registers obs to run whenever the driver reaches phase.
func (r *Registry) Observe(phase string, obs Observer) {
	r.observers[phase] = append(r.observers[phase], obs)
}

// AddTransform registers t to run at phase, which must be PhasePreOpt or
// PhasePostOpt; transforms registered at any other phase are never
// invoked (the driver only calls applyTransforms at those two points).
func (r *Registry) AddTransform(phase string, t Transform) {
	r.transforms[phase] = append(r.transforms[phase], t)
}

// notify runs every observer registered at phase, in registration order.
func (r *Registry) notify(phase string, payload interface{}) {
	for _, obs := range r.observers[phase] {
		obs(phase, payload)
	}
}

// applyTransforms runs every transform registered at phase against root,
// in registration order, threading the (possibly replaced) root through.
func (r *Registry) applyTransforms(phase string, root *Node) *Node {
	for _, t := range r.transforms[phase] {
		root = t(root)
	}
	return root
}
