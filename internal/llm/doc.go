// Package llm wraps the chat completion endpoint used to generate reel
// scripts. Responses are requested in JSON object mode; rate-limit failures
// are reported as ErrRateLimited so callers can retry them and nothing else.
package llm
