/*
Package persona defines discussion participants and how they turn a
transcript snapshot into a new message.

A Persona is an immutable value built once from configuration and shared
freely across concurrent discussions. Produce renders the transcript for
the persona, calls a Gateway, and wraps the text as a transcript.Message;
failures come back as *GenerationError and are never retried here.
LLMGateway adapts any llm.Provider to the Gateway contract.
*/
package persona
