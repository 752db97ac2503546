// Package openaicompat implements llm.Provider for any server speaking the
// OpenAI Chat Completions dialect: LM Studio, OpenRouter, vLLM, Ollama's
// /v1 shim, llama.cpp server.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "lmstudio",
//	    BaseURL:      "http://localhost:1234",
//	    DefaultModel: "mistralai/mistral-7b-instruct-v0.3",
//	}, logger)
package openaicompat
