package calculator_tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/common"
)

// ToolName is the registered name of the calculator.
const ToolName = "calculator"

// maxNodes bounds the size of an accepted expression.
const maxNodes = 500

var (
	// ErrDivisionByZero is returned when an expression divides by zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrNotFinite is returned when the result is NaN or infinite, e.g.
	// sqrt(-1) or exp(1000).
	ErrNotFinite = errors.New("result is not a finite number")
)

var env = map[string]any{
	"pi":    math.Pi,
	"e":     math.E,
	"sqrt":  math.Sqrt,
	"pow":   math.Pow,
	"log":   math.Log,
	"log10": math.Log10,
	"exp":   math.Exp,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
}

// options routes / and % through divide and modulo so a zero divisor
// surfaces as ErrDivisionByZero.
var options = []expr.Option{
	expr.Env(env),
	expr.AsFloat64(),
	expr.MaxNodes(maxNodes),
	expr.Function("divide", divide,
		new(func(int, int) float64),
		new(func(int, float64) float64),
		new(func(float64, int) float64),
		new(func(float64, float64) float64),
	),
	expr.Function("modulo", modulo,
		new(func(int, int) int),
		new(func(float64, float64) float64),
	),
	expr.Operator("/", "divide"),
	expr.Operator("%", "modulo"),
}

func toFloat(v any) float64 {
	if i, ok := v.(int); ok {
		return float64(i)
	}
	return v.(float64)
}

func divide(params ...any) (any, error) {
	b := toFloat(params[1])
	if b == 0 {
		return nil, ErrDivisionByZero
	}
	return toFloat(params[0]) / b, nil
}

func modulo(params ...any) (any, error) {
	switch a := params[0].(type) {
	case int:
		b := params[1].(int)
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return a % b, nil
	case float64:
		b := params[1].(float64)
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return math.Mod(a, b), nil
	}
	return nil, fmt.Errorf("modulo of %T is not supported", params[0])
}

// RegisterCalculatorTools registers the calculator with the registry.
func RegisterCalculatorTools(r *agent.Registry, sc *server.ServerContext) error {
	return r.Register(agent.ToolDefinition{
		Tool:    Tool(),
		Execute: common.InstrumentedExecutor(ToolName, sc, handleCalculate),
	})
}

// Tool returns the calculator's schema.
func Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Evaluate an arithmetic expression and return the result. "+
			"Supports + - * / % ^, parentheses and the functions sqrt, pow, log, log10, exp, sin, cos, tan, abs, floor, ceil, round, min and max."),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("The expression to evaluate, e.g. '7*8' or '(2+3)^2'"),
		),
	)
}

func handleCalculate(_ context.Context, args map[string]any) (string, error) {
	return Evaluate(agent.StringArg(args, "expression"))
}

// Evaluate computes expression and formats the result without trailing
// zeros, so "2+2" yields "4".
func Evaluate(expression string) (string, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", errors.New("expression is empty")
	}

	program, err := expr.Compile(expression, options...)
	if err != nil {
		return "", fmt.Errorf("invalid expression: %w", err)
	}

	out, err := expr.Run(program, env)
	if errors.Is(err, ErrDivisionByZero) {
		return "", ErrDivisionByZero
	}
	if err != nil {
		return "", err
	}

	v, ok := out.(float64)
	if !ok {
		return "", fmt.Errorf("expression did not evaluate to a number")
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "", ErrNotFinite
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}
