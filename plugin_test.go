package casec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryNotifyRunsInRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	var order []int
	reg.Observe(PhaseParsed, func(phase string, payload interface{}) { order = append(order, 1) })
	reg.Observe(PhaseParsed, func(phase string, payload interface{}) { order = append(order, 2) })
	reg.notify(PhaseParsed, nil)
	require.Equal(t, []int{1, 2}, order)
}

func TestRegistryNotifyOnlyFiresRegisteredPhase(t *testing.T) {
	reg := NewRegistry()
	fired := false
	reg.Observe(PhaseAnalyzed, func(phase string, payload interface{}) { fired = true })
	reg.notify(PhaseOptimized, nil)
	require.False(t, fired)
	reg.notify(PhaseAnalyzed, nil)
	require.True(t, fired)
}

func TestRegistryApplyTransformsChainsInOrder(t *testing.T) {
	reg := NewRegistry()
	reg.AddTransform(PhasePreOpt, func(root *Node) *Node {
		return NewNode(KindProgram, root.Payload+"-a", root.Line, root.Children...)
	})
	reg.AddTransform(PhasePreOpt, func(root *Node) *Node {
		return NewNode(KindProgram, root.Payload+"-b", root.Line, root.Children...)
	})
	root := NewNode(KindProgram, "root", 1)
	out := reg.applyTransforms(PhasePreOpt, root)
	require.Equal(t, "root-a-b", out.Payload)
}

func TestRegistryTransformsAtOtherPhasesAreIgnoredByDriver(t *testing.T) {
	reg := NewRegistry()
	calledAtTokens := false
	reg.AddTransform(PhaseTokens, func(root *Node) *Node {
		calledAtTokens = true
		return root
	})
	_, err := Compile("overlay mutate\nFn marker { }\nlet a = 1", DefaultConfig(), reg)
	require.NoError(t, err)
	require.False(t, calledAtTokens)
}

func TestDriverNotifiesObserversAcrossPhases(t *testing.T) {
	reg := NewRegistry()
	var seen []string
	for _, phase := range []string{PhaseTokens, PhaseParsed, PhaseAnalyzed, PhaseOptimized, PhaseBeforeEmit, PhaseEmittedCpp, PhaseAfterEmit} {
		p := phase
		reg.Observe(p, func(phase string, payload interface{}) { seen = append(seen, phase) })
	}
	_, err := Compile("overlay inspect\nFn marker { }\nPrint \"hi\"", DefaultConfig(), reg)
	require.NoError(t, err)
	require.Contains(t, seen, PhaseParsed)
	require.Contains(t, seen, PhaseEmittedCpp)
}

func TestDriverObserversDoNotFireWithoutInspectReplayOrAudit(t *testing.T) {
	reg := NewRegistry()
	fired := false
	reg.Observe(PhaseParsed, func(phase string, payload interface{}) { fired = true })
	_, err := Compile(`Print "hi"`, DefaultConfig(), reg)
	require.NoError(t, err)
	require.False(t, fired)
}

func TestDriverMutateTransformRunsAtPreOptAndPostOpt(t *testing.T) {
	reg := NewRegistry()
	var phases []string
	mark := func(phase string) Transform {
		return func(root *Node) *Node {
			phases = append(phases, phase)
			return root
		}
	}
	reg.AddTransform(PhasePreOpt, mark(PhasePreOpt))
	reg.AddTransform(PhasePostOpt, mark(PhasePostOpt))
	_, err := Compile("overlay mutate\nFn marker { }\nlet a = 1 + 2", DefaultConfig(), reg)
	require.NoError(t, err)
	require.Equal(t, []string{PhasePreOpt, PhasePostOpt}, phases)
}

func TestDriverTransformDoesNotRunWithoutMutate(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.AddTransform(PhasePreOpt, func(root *Node) *Node {
		called = true
		return root
	})
	_, err := Compile(`let a = 1 + 2`, DefaultConfig(), reg)
	require.NoError(t, err)
	require.False(t, called)
}

func TestDriverReplayBufferEmptyWithoutReplayFlag(t *testing.T) {
	reg := NewRegistry()
	result, err := Compile(`Print "hi"`, DefaultConfig(), reg)
	require.NoError(t, err)
	require.Empty(t, result.ReplayLog)
}

func TestDriverReplayBufferPopulatedWithReplayFlag(t *testing.T) {
	reg := NewRegistry()
	result, err := Compile("overlay replay\nFn marker { }\nPrint \"hi\"", DefaultConfig(), reg)
	require.NoError(t, err)
	require.NotEmpty(t, result.ReplayLog)
}
