package memory

import (
	"github.com/hupe1980/convopilot/core"
)

// charsPerToken is the crude character-to-token conversion used for budget
// estimates. Real tokenizers vary by model; 4 chars/token is a conservative
// average for English text.
const charsPerToken = 4

// OptimizeContext returns a bundle whose token estimate fits maxTokens,
// degrading the input in strict order until it does:
//
//  1. drop oldest history turns one at a time while more than 2 remain
//  2. drop least-relevant memories from the tail of the ranked list
//  3. drop the summary entirely
//  4. collapse history to only the single most recent turn
//
// If the bundle is still over budget after step 4 the call fails with a
// ContextWindowExceeded error carrying the final estimate and the budget.
// Bundles already under budget are returned unchanged, which also makes the
// operation idempotent. The input bundle is never mutated.
func (m *Manager) OptimizeContext(bundle core.ContextBundle, maxTokens int) (core.ContextBundle, error) {
	out := core.ContextBundle{
		History:  append([]core.Interaction(nil), bundle.History...),
		Memories: append([]string(nil), bundle.Memories...),
		Summary:  bundle.Summary,
	}

	if EstimateTokens(out) <= maxTokens {
		return out, nil
	}

	for len(out.History) > 2 && EstimateTokens(out) > maxTokens {
		out.History = out.History[1:]
	}

	for len(out.Memories) > 0 && EstimateTokens(out) > maxTokens {
		out.Memories = out.Memories[:len(out.Memories)-1]
	}

	if EstimateTokens(out) > maxTokens {
		out.Summary = ""
	}

	if EstimateTokens(out) > maxTokens && len(out.History) > 1 {
		out.History = out.History[len(out.History)-1:]
	}

	if est := EstimateTokens(out); est > maxTokens {
		return core.ContextBundle{}, core.NewContextWindowError(est, maxTokens)
	}

	return out, nil
}

// EstimateTokens approximates the token footprint of a bundle as the total
// character count across history, memories and summary divided by four.
func EstimateTokens(bundle core.ContextBundle) int {
	chars := len(bundle.Summary)
	for _, in := range bundle.History {
		chars += len(in.Input) + len(in.Response)
	}
	for _, mem := range bundle.Memories {
		chars += len(mem)
	}
	return chars / charsPerToken
}
