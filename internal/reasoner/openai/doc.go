// Package openai implements agent.Reasoner on top of the OpenAI chat
// completions API with function calling.
//
// Any OpenAI compatible endpoint can be used by setting Config.BaseURL.
package openai
