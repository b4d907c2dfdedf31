// Package calculator_tools provides the calculator tool, which evaluates
// arithmetic expressions such as "7*8" or "sqrt(2) * pi".
//
// Expressions are compiled with expr and must produce a number. Division by
// zero and other non-finite results are reported as errors.
package calculator_tools
