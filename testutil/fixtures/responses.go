// =============================================================================
// 📦 测试数据工厂 - 补全响应
// =============================================================================
package fixtures

import (
	"time"

	"github.com/BaSui01/submind/llm"
)

// Completion 返回一个本地模型风格的补全响应
func Completion(model, content string, completionTokens int) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:       "chatcmpl-fixture",
		Provider: "lmstudio",
		Model:    model,
		Choices: []llm.ChatChoice{
			{Index: 0, FinishReason: "stop", Message: llm.Message{Role: llm.RoleAssistant, Content: content}},
		},
		Usage:     llm.ChatUsage{CompletionTokens: completionTokens, TotalTokens: completionTokens},
		CreatedAt: time.Now(),
	}
}

// RunawayCompletion 返回模型越界扮演其他参与者的补全：
// 自带说话人前缀，并在 [/INST] 之后继续生成下一轮对话。
func RunawayCompletion(speaker, content, otherSpeaker string) *llm.ChatResponse {
	raw := speaker + ": " + content + " [/INST] " + otherSpeaker + ": I disagree entirely. [INST]"
	return Completion("mistral-7b-instruct", raw, 48)
}

// EmptyChoicesResponse 返回没有 choices 的畸形响应
func EmptyChoicesResponse() *llm.ChatResponse {
	return &llm.ChatResponse{ID: "resp-empty", Provider: "lmstudio", Model: "mistral-7b-instruct"}
}
