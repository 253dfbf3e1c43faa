package tool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Registry Tests --------------------

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator()))

	err := r.Register(NewCalculator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_RegisterRejectsInvalidTools(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(Tool{Name: "", Execute: func(map[string]any) (any, error) { return nil, nil }}))
	assert.Error(t, r.Register(Tool{Name: "no_executor"}))
}

func TestRegistry_HasAndNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator()))
	require.NoError(t, r.Register(Tool{Name: "alpha", Execute: func(map[string]any) (any, error) { return "ok", nil }}))

	assert.True(t, r.Has("calculator"))
	assert.False(t, r.Has("missing"))
	assert.Equal(t, []string{"alpha", "calculator"}, r.Names())
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Execute("missing", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not registered")
}

func TestRegistry_ExecuteFailureUsesErrorMessenger(t *testing.T) {
	r := NewRegistry(func(o *Options) {
		o.ErrorMessenger = func(name string, err error) string { return "sanitized " + name + ": " + err.Error() }
	})
	require.NoError(t, r.Register(Tool{Name: "boom", Execute: func(map[string]any) (any, error) {
		return nil, errors.New("kaput")
	}}))

	result := r.Execute("boom", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "sanitized boom: kaput", result.Error)
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRecorder) ObserveTool(name string, success bool, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := "ok"
	if !success {
		status = "error"
	}
	f.calls = append(f.calls, name+":"+status)
}

func TestRegistry_ExecuteRecordsTelemetry(t *testing.T) {
	rec := &fakeRecorder{}
	r := NewRegistry(func(o *Options) { o.Recorder = rec })
	require.NoError(t, r.Register(NewCalculator()))

	r.Execute("calculator", map[string]any{"operation": "add", "a": 1.0, "b": 2.0})
	r.Execute("calculator", map[string]any{"operation": "divide", "a": 1.0, "b": 0.0})

	assert.Equal(t, []string{"calculator:ok", "calculator:error"}, rec.calls)
}

// -------------------- Calculator Tests --------------------

func TestCalculator_Operations(t *testing.T) {
	calc := NewCalculator()
	tests := []struct {
		operation string
		a, b      float64
		want      float64
	}{
		{"add", 2, 3, 5},
		{"subtract", 10, 4, 6},
		{"multiply", 3, 4, 12},
		{"divide", 12, 4, 3},
	}
	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			got, err := calc.Execute(map[string]any{"operation": tt.operation, "a": tt.a, "b": tt.b})
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"result": tt.want}, got)
		})
	}
}

func TestCalculator_Errors(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Execute(map[string]any{"operation": "divide", "a": 1.0, "b": 0.0})
	assert.Error(t, err)

	_, err = calc.Execute(map[string]any{"operation": "modulo", "a": 1.0, "b": 2.0})
	assert.Error(t, err)

	_, err = calc.Execute(map[string]any{"operation": "add", "a": "nope", "b": 2.0})
	assert.Error(t, err)
}

// -------------------- Embedded Call Processing --------------------

func TestProcessResponse_CalculatorSubstitution(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator()))

	out := r.ProcessResponse("Result: [[calculator(operation=add,a=2,b=3)]]", "s1")
	assert.Equal(t, `Result: {"result":5}`, out)
}

func TestProcessResponse_UnknownToolListsAvailable(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator()))
	require.NoError(t, r.Register(Tool{Name: "weather", Execute: func(map[string]any) (any, error) { return "sunny", nil }}))

	out := r.ProcessResponse("See: [[lookup(q=x)]]", "s1")
	assert.Contains(t, out, `"lookup" not found`)
	assert.Contains(t, out, "calculator, weather")
}

func TestProcessResponse_ToolFailureSubstitutedInline(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator()))

	out := r.ProcessResponse("Answer: [[calculator(operation=divide,a=1,b=0)]]", "s1")
	assert.Contains(t, out, "Error executing tool calculator:")
	// Internal error detail is not leaked through the default messenger.
	assert.NotContains(t, out, "division by zero")
}

func TestProcessResponse_MultipleCallsResolvedIndependently(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator()))

	out := r.ProcessResponse("[[calculator(operation=add,a=1,b=1)]] and [[calculator(operation=multiply,a=2,b=3)]] and [[missing()]]", "s1")
	assert.Contains(t, out, `{"result":2}`)
	assert.Contains(t, out, `{"result":6}`)
	assert.Contains(t, out, "not found")
}

func TestProcessResponse_NoCallsPassthrough(t *testing.T) {
	r := NewRegistry()
	raw := "Plain response with [brackets] but no calls."
	assert.Equal(t, raw, r.ProcessResponse(raw, "s1"))
}

func TestProcessResponse_ScalarResultsSubstitutedAsIs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Tool{Name: "greet", Execute: func(params map[string]any) (any, error) {
		name, _ := params["name"].(string)
		return "Hello, " + name + "!", nil
	}}))

	out := r.ProcessResponse("[[greet(name=Alex)]]", "s1")
	assert.Equal(t, "Hello, Alex!", out)
}

// -------------------- Argument Parsing --------------------

func TestParseArguments_Coercion(t *testing.T) {
	params := parseArguments(`flag=true, off=false, n=42, pi=3.14, bare=hello, quoted="hello world", single='x', neg=-7`)

	assert.Equal(t, true, params["flag"])
	assert.Equal(t, false, params["off"])
	assert.Equal(t, 42.0, params["n"])
	assert.Equal(t, 3.14, params["pi"])
	assert.Equal(t, "hello", params["bare"])
	assert.Equal(t, "hello world", params["quoted"])
	assert.Equal(t, "x", params["single"])
	assert.Equal(t, -7.0, params["neg"])
}

func TestParseArguments_EdgeCases(t *testing.T) {
	assert.Empty(t, parseArguments(""))
	assert.Empty(t, parseArguments("  ,  ,"))

	// Pairs without '=' are skipped
	params := parseArguments("a=1,malformed,b=2")
	assert.Len(t, params, 2)

	// Quoted literals keep their textual form instead of being coerced
	params = parseArguments(`a="true", b="42"`)
	assert.Equal(t, "true", params["a"])
	assert.Equal(t, "42", params["b"])
}
