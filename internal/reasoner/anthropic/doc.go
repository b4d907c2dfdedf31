// Package anthropic implements agent.Reasoner on top of the Anthropic
// Messages API with tool use.
package anthropic
