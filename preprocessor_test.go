package casec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreprocessIdentityWithoutDirective(t *testing.T) {
	src := `let a = 2+3
Print "hi"`
	require.Equal(t, src, Preprocess(src))
}

func TestPreprocessNoOpWhenEndsOff(t *testing.T) {
	src := `call CIAM[on] call CIAM[off] let a = 1`
	// The whole pass is gated on the *final* enabled state; turning CIAM
	// back off before end of input makes the pass a no-op, directives
	// included.
	require.Equal(t, src, Preprocess(src))
}

func TestPreprocessMacroExtraction(t *testing.T) {
	src := `call CIAM[on]
Fn f {
  Print "hello"
  Print "hello"
}`
	out := Preprocess(src)
	require.Contains(t, out, "_CIAM_Print_1")
	require.Contains(t, out, `call _CIAM_Print_1`)
	require.Equal(t, 1, strings.Count(out, `Print "hello"`))
}

func TestPreprocessMacroExtractionRequiresFrequencyTwo(t *testing.T) {
	src := `call CIAM[on]
Fn f {
  Print "only once"
}`
	out := Preprocess(src)
	require.NotContains(t, out, "_CIAM_Print_")
	require.Contains(t, out, `Print "only once"`)
}

func TestPreprocessNearMissCallRepair(t *testing.T) {
	src := `call CIAM[on]
Fn compute { Ret 1 }
call comput`
	out := Preprocess(src)
	require.Contains(t, out, "call compute")
}

func TestPreprocessNearMissTieBreaksFirstDeclared(t *testing.T) {
	src := `call CIAM[on]
Fn abcd { Ret 1 }
Fn abcx { Ret 2 }
call abc`
	out := Preprocess(src)
	require.Contains(t, out, "call abcd")
}

// TestPreprocessScenario6 mirrors spec.md scenario 6: two adjacent Print
// statements where the first has no string argument. Since no string
// literal precedes it, the content is inferred by scanning forward to
// the next Print's literal — which raises "hi"'s frequency to 2, so both
// occurrences are then extracted into one synthesized macro.
func TestPreprocessScenario6(t *testing.T) {
	src := `call CIAM[on] Print Print "hi"`
	out := Preprocess(src)
	require.Contains(t, out, "_CIAM_Print_1")
	require.Equal(t, 1, strings.Count(out, `Print "hi"`))
	require.Equal(t, 2, strings.Count(out, "call _CIAM_Print_1"))
}

func TestEditDistance(t *testing.T) {
	require.Equal(t, 0, editDistance("abc", "abc"))
	require.Equal(t, 1, editDistance("abc", "abd"))
	require.Equal(t, 2, editDistance("abc", "xbd"))
	require.Equal(t, 3, editDistance("", "abc"))
}
