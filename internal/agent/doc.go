// Package agent contains the conversational agent that turns a natural-language
// instruction into tool calls against registered capability plugins. The agent
// owns the model loop, binds its wallet to every tool invocation, and persists
// the transcript of each thread.
package agent
