// Package reasoner selects and configures the language model backend that
// drives the agent loop.
//
// Two providers are supported: OpenAI chat completions (and compatible
// endpoints) and Anthropic Messages. Config is read from the environment by
// DefaultConfig and may be overridden by command line flags. New wraps the
// chosen backend so that every call is traced and counted.
package reasoner
