// Package llm contains the request/response contract for invoking large
// language models and the provider adapters that satisfy it. The planner
// depends only on the Client interface, so any chat-completions style
// provider is interchangeable.
package llm
