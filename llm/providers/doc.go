/*
Package providers holds the wire types and error mapping shared by
OpenAI-compatible completion transports (LM Studio, OpenRouter, vLLM,
llama.cpp server and friends).

  - MapHTTPError:          HTTP status to llm.Error with retry flag
  - ReadErrorMessage:      best effort extraction of upstream error text
  - OpenAICompat*:         chat completion request/response shapes
  - ToLLMChatResponse:     wire response to llm.ChatResponse
  - ListModelsOpenAICompat: GET /v1/models
*/
package providers
