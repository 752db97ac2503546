// MockProvider 是 llm.Provider 的测试模拟实现。
//
// 支持固定响应、按模型错误注入与调用记录。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/submind/llm"
)

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	name        string
	response    string
	err         error
	modelErrors map[string]error
	models      []llm.Model
	healthErr   error

	completionTokens int
	delay            time.Duration
	completionFunc   func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	calls []*llm.ChatRequest
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name:             "mock",
		response:         "Mock response",
		modelErrors:      make(map[string]error),
		models:           []llm.Model{{ID: "mock-model", Object: "model"}},
		completionTokens: 20,
	}
}

// WithName 设置 Provider 名称
func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置所有调用返回的错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithModelError 设置指定模型返回的错误
func (m *MockProvider) WithModelError(model string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelErrors[model] = err
	return m
}

// WithModels 设置 ListModels 结果
func (m *MockProvider) WithModels(ids ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = m.models[:0]
	for _, id := range ids {
		m.models = append(m.models, llm.Model{ID: id, Object: "model"})
	}
	return m
}

// WithHealthError 设置健康检查错误
func (m *MockProvider) WithHealthError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthErr = err
	return m
}

// WithDelay 设置响应延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithCompletionFunc 设置自定义 Completion 实现
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// Name 实现 llm.Provider
func (m *MockProvider) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Completion 实现 llm.Provider
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn, delay, err := m.completionFunc, m.delay, m.err
	modelErr := m.modelErrors[req.Model]
	response, tokens, name := m.response, m.completionTokens, m.name
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if modelErr != nil {
		return nil, modelErr
	}
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	return &llm.ChatResponse{
		ID:       "mock-resp",
		Provider: name,
		Model:    model,
		Choices: []llm.ChatChoice{
			{Index: 0, FinishReason: "stop", Message: llm.Message{Role: llm.RoleAssistant, Content: response}},
		},
		Usage:     llm.ChatUsage{CompletionTokens: tokens, TotalTokens: tokens},
		CreatedAt: time.Now(),
	}, nil
}

// HealthCheck 实现 llm.Provider
func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.healthErr != nil {
		return &llm.HealthStatus{Healthy: false}, m.healthErr
	}
	return &llm.HealthStatus{Healthy: true, Latency: time.Millisecond, Models: len(m.models)}, nil
}

// ListModels 实现 llm.Provider
func (m *MockProvider) ListModels(ctx context.Context) ([]llm.Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.healthErr != nil {
		return nil, m.healthErr
	}
	out := make([]llm.Model, len(m.models))
	copy(out, m.models)
	return out, nil
}

// Calls 返回调用记录
func (m *MockProvider) Calls() []*llm.ChatRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*llm.ChatRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}
