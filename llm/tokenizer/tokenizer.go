package tokenizer

import (
	"fmt"
	"strings"
	"sync"
)

// Tokenizer 是统一的 token 计数接口.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// 全局分词器注册表.
var (
	modelTokenizers   = make(map[string]Tokenizer)
	modelTokenizersMu sync.RWMutex
)

// RegisterTokenizer 为给定的模型名称注册分词器.
func RegisterTokenizer(model string, t Tokenizer) {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	modelTokenizers[model] = t
}

// GetTokenizer 返回为给定模型注册的分词器，支持前缀匹配，
// 并忽略 OpenRouter 风格的 "vendor/" 前缀（"openai/gpt-4o" 匹配 "gpt-4o"）。
func GetTokenizer(model string) (Tokenizer, error) {
	modelTokenizersMu.RLock()
	defer modelTokenizersMu.RUnlock()

	candidates := []string{model}
	if i := strings.LastIndex(model, "/"); i >= 0 && i < len(model)-1 {
		candidates = append(candidates, model[i+1:])
	}

	for _, name := range candidates {
		if t, ok := modelTokenizers[name]; ok {
			return t, nil
		}
	}

	// 最长前缀优先，避免 "gpt-4" 抢先匹配 "gpt-4o-mini"
	var best Tokenizer
	bestLen := 0
	for _, name := range candidates {
		for prefix, t := range modelTokenizers {
			if strings.HasPrefix(name, prefix) && len(prefix) > bestLen {
				best, bestLen = t, len(prefix)
			}
		}
	}
	if best != nil {
		return best, nil
	}

	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// GetTokenizerOrEstimator 返回该模型的注册分词器，未注册时回退到估算器。
func GetTokenizerOrEstimator(model string) Tokenizer {
	t, err := GetTokenizer(model)
	if err != nil {
		return NewEstimatorTokenizer(model, 0)
	}
	return t
}

// Count is CountTokens that never fails: a tokenizer error falls back to
// the estimator so callers recording usage metadata can ignore errors.
func Count(t Tokenizer, text string) int {
	if t == nil {
		t = NewEstimatorTokenizer("", 0)
	}
	n, err := t.CountTokens(text)
	if err != nil {
		n, _ = NewEstimatorTokenizer("", 0).CountTokens(text)
	}
	return n
}
