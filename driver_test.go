package casec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileScenario1PlainPrint(t *testing.T) {
	res, err := Compile(`Print "hello"`, DefaultConfig(), NewRegistry())
	require.NoError(t, err)
	require.Contains(t, res.CppSource, `std::cout << "hello" << std::endl;`)
	require.NotContains(t, res.CppSource, "Fn ")
}

func TestCompileScenario2TwoFunctionsEmptyMain(t *testing.T) {
	res, err := Compile(`Fn f { Print "x" } Fn g { call f }`, DefaultConfig(), NewRegistry())
	require.NoError(t, err)
	require.Contains(t, res.CppSource, "void f(")
	require.Contains(t, res.CppSource, "void g(")
	mainIdx := strings.Index(res.CppSource, "int main(")
	require.GreaterOrEqual(t, mainIdx, 0)
	require.Equal(t, "int main() {\n    return 0;\n}\n", res.CppSource[mainIdx:])
}

func TestCompileScenario3PureFunctionSideEffect(t *testing.T) {
	_, err := Compile(`overlay pure
Fn f {
  Print "x"
}`, DefaultConfig(), NewRegistry())
	require.Error(t, err)
	sv, ok := err.(SemanticValidationFailed)
	require.True(t, ok)
	require.Len(t, sv.Errors, 1)
	require.Equal(t, "PureFunctionSideEffect", sv.Errors[0].Kind)
}

func TestCompileScenario4NonNegArgumentNegative(t *testing.T) {
	res, err := Compile(`overlay nonneg_n
Fn f "int n" {
}
call f -1`, DefaultConfig(), NewRegistry())
	require.Error(t, err)
	require.Nil(t, res)
	sv, ok := err.(SemanticValidationFailed)
	require.True(t, ok)
	require.Len(t, sv.Errors, 1)
	require.Equal(t, "NonNegArgumentNegative", sv.Errors[0].Kind)
}

func TestCompileScenario5ConstantFoldingEndToEnd(t *testing.T) {
	res, err := Compile(`let a = 2+3
let b = a*0`, DefaultConfig(), NewRegistry())
	require.NoError(t, err)
	require.Contains(t, res.CppSource, "auto a = 5;")
	require.Contains(t, res.CppSource, "auto b = 0;")
}

func TestCompileReplayLogCoversEveryPhase(t *testing.T) {
	res, err := Compile("overlay replay\nFn marker { }\nPrint \"hi\"", DefaultConfig(), NewRegistry())
	require.NoError(t, err)
	joined := strings.Join(res.ReplayLog, "\n")
	for _, phase := range []string{PhaseTokens, PhaseParsed, PhaseAnalyzed, PhasePreOpt, PhaseOptimized, PhasePostOpt, PhaseBeforeEmit, PhaseEmittedCpp, PhaseAfterEmit} {
		require.Contains(t, joined, phase+"\t")
	}
}

func TestCompileReplayLogEmptyWithoutReplayOverlay(t *testing.T) {
	res, err := Compile(`Print "hi"`, DefaultConfig(), NewRegistry())
	require.NoError(t, err)
	require.Empty(t, res.ReplayLog)
}

func TestCompileNoCompileAddsWarningDiagnostic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoCompile = true
	res, err := Compile(`Print "hi"`, cfg, NewRegistry())
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	require.Equal(t, SeverityWarning, res.Diagnostics[0].Severity)
}

func TestCompileDiagramTagRendersRailroad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tags = map[string]string{"diagram": "1"}
	res, err := Compile(`Fn f { ret 1 }`, cfg, NewRegistry())
	require.NoError(t, err)
	require.NotEmpty(t, res.Diagram)
}

func TestCompileMetadataBannerIncludesTags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tags = map[string]string{"team": "compilers"}
	res, err := Compile(`Print "hi"`, cfg, NewRegistry())
	require.NoError(t, err)
	require.Contains(t, res.CppSource, `"tag.team"`)
	require.Contains(t, res.CppSource, "compilers")
}
