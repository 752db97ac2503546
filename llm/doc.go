/*
Package llm defines the completion transport contract used by personas.

# Provider

[Provider] is the external completion service: it takes a [ChatRequest]
(model, role-tagged messages, temperature, max tokens) and returns a
[ChatResponse], or fails with an [*Error] whose code tells the caller
whether the failure was a rate limit, an upstream fault or a malformed
response. Concrete transports live under llm/providers.

# Helpers

  - [FirstChoice]:   safe access to the first completion choice
  - [IsRateLimited]: typed or textual rate-limit detection, used for
    model fallback
  - [IsRetryable]:   retry classification for the orchestrator's policy
*/
package llm
