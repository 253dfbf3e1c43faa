package tool

import "fmt"

// NewCalculator returns a basic arithmetic tool supporting the add, subtract,
// multiply and divide operations over two numeric operands a and b. Useful as
// a built-in for examples and as a registration target in tests.
func NewCalculator() Tool {
	return Tool{
		Name:        "calculator",
		Description: "Perform basic arithmetic. Params: operation (add|subtract|multiply|divide), a, b.",
		Category:    "math",
		Execute: func(params map[string]any) (any, error) {
			operation, _ := params["operation"].(string)
			a, aok := params["a"].(float64)
			b, bok := params["b"].(float64)
			if !aok || !bok {
				return nil, fmt.Errorf("parameters a and b must be numbers")
			}

			var result float64
			switch operation {
			case "add":
				result = a + b
			case "subtract":
				result = a - b
			case "multiply":
				result = a * b
			case "divide":
				if b == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				result = a / b
			default:
				return nil, fmt.Errorf("unknown operation %q", operation)
			}
			return map[string]any{"result": result}, nil
		},
	}
}
