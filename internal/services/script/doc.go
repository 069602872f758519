// Package script wraps the LLM chat-completions endpoint used to generate
// narration scripts from a topic when a request carries no script text.
package script
