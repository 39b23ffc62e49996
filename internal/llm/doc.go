// Package llm defines the provider-neutral chat completion contract used by the
// agent loop: messages, tool specifications and tool calls.
package llm
