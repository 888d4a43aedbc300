// Package llm is the chat-completions client every prompt flow goes through.
//
// # Calls
//
// CompleteJSON sends one system prompt and one user prompt, optionally with
// attached files given as data URIs, and asks the model for a JSON object.
// Each call is a run: it gets a uuid run ID, an "llm.call" span, and, when a
// vault and recorder are configured, its raw request and response bodies are
// stored in the vault and a run record is written to disk.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). A Retry-After header overrides the backoff. Context cancellation
// aborts retries immediately.
//
// # Decoding
//
// DecodeLLMJSON tolerates code fences and prose around the JSON payload.
package llm
