package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/convopilot/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(n int) core.Interaction {
	return core.Interaction{
		Input:     strings.Repeat("i", 40),
		Response:  strings.Repeat("r", 40),
		Timestamp: time.Now().Add(time.Duration(n) * time.Second),
	}
}

func TestOptimizeContext_UnderBudgetUnchanged(t *testing.T) {
	m := NewManager()
	bundle := core.ContextBundle{
		History:  []core.Interaction{turn(0), turn(1)},
		Memories: []string{"memory one", "memory two"},
		Summary:  "short summary",
	}

	out, err := m.OptimizeContext(bundle, 10_000)
	require.NoError(t, err)
	assert.Equal(t, bundle, out)
}

func TestOptimizeContext_DropsOldestHistoryFirst(t *testing.T) {
	m := NewManager()
	// 5 turns x 80 chars = 400 chars = 100 tokens; budget forces dropping
	// down to 3 turns (60 tokens) before touching memories.
	bundle := core.ContextBundle{History: []core.Interaction{turn(0), turn(1), turn(2), turn(3), turn(4)}}

	out, err := m.OptimizeContext(bundle, 60)
	require.NoError(t, err)
	require.Len(t, out.History, 3)
	assert.Equal(t, bundle.History[2], out.History[0])
}

func TestOptimizeContext_NeverDropsBelowTwoTurnsInStepOne(t *testing.T) {
	m := NewManager()
	bundle := core.ContextBundle{
		History:  []core.Interaction{turn(0), turn(1), turn(2), turn(3)},
		Memories: []string{strings.Repeat("m", 200)},
	}

	// Budget of 40 tokens: step (a) stops at 2 turns (40 tokens), step (b)
	// then drops the memory.
	out, err := m.OptimizeContext(bundle, 40)
	require.NoError(t, err)
	assert.Len(t, out.History, 2)
	assert.Empty(t, out.Memories)
}

func TestOptimizeContext_DropsMemoriesFromTail(t *testing.T) {
	m := NewManager()
	bundle := core.ContextBundle{
		History:  []core.Interaction{turn(0), turn(1)},
		Memories: []string{"most relevant", strings.Repeat("x", 400)},
	}

	// 2 turns = 40 tokens, memories = 13 + 400 chars. Budget 55 forces
	// dropping the least relevant (tail) memory only.
	out, err := m.OptimizeContext(bundle, 55)
	require.NoError(t, err)
	assert.Equal(t, []string{"most relevant"}, out.Memories)
	assert.Len(t, out.History, 2)
}

func TestOptimizeContext_DropsSummaryThenCollapsesHistory(t *testing.T) {
	m := NewManager()
	bundle := core.ContextBundle{
		History: []core.Interaction{turn(0), turn(1)},
		Summary: strings.Repeat("s", 100),
	}

	// 2 turns (40 tokens) + summary (25 tokens). Budget 20 drops the summary
	// and collapses history to the single most recent turn.
	out, err := m.OptimizeContext(bundle, 20)
	require.NoError(t, err)
	assert.Empty(t, out.Summary)
	require.Len(t, out.History, 1)
	assert.Equal(t, bundle.History[1], out.History[0])
}

func TestOptimizeContext_FailsWithAccurateCounts(t *testing.T) {
	m := NewManager()
	bundle := core.ContextBundle{History: []core.Interaction{turn(0)}}

	_, err := m.OptimizeContext(bundle, 10)
	require.Error(t, err)

	ae, ok := core.AsAgentError(err)
	require.True(t, ok)
	assert.Equal(t, core.CategoryContextWindowExceeded, ae.Category)
	assert.Equal(t, 20, ae.TokenCount) // 80 chars / 4
	assert.Equal(t, 10, ae.MaxTokens)
}

func TestOptimizeContext_Idempotent(t *testing.T) {
	m := NewManager()
	bundle := core.ContextBundle{
		History:  []core.Interaction{turn(0), turn(1), turn(2), turn(3), turn(4)},
		Memories: []string{strings.Repeat("m", 100), strings.Repeat("n", 100)},
		Summary:  strings.Repeat("s", 80),
	}

	once, err := m.OptimizeContext(bundle, 70)
	require.NoError(t, err)
	twice, err := m.OptimizeContext(once, 70)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.LessOrEqual(t, EstimateTokens(once), 70)
}

func TestOptimizeContext_DoesNotMutateInput(t *testing.T) {
	m := NewManager()
	bundle := core.ContextBundle{
		History:  []core.Interaction{turn(0), turn(1), turn(2)},
		Memories: []string{"a", "b"},
		Summary:  strings.Repeat("s", 200),
	}

	_, err := m.OptimizeContext(bundle, 30)
	require.NoError(t, err)
	assert.Len(t, bundle.History, 3)
	assert.Len(t, bundle.Memories, 2)
	assert.NotEmpty(t, bundle.Summary)
}
