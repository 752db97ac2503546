// ScriptedGateway 是 persona.Gateway 的可编排模拟实现。
//
// 每个 persona 有独立的回复队列；队列耗尽后返回与其他回复互不相似的新文本，
// 因此不会意外触发共识或重复检测。
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/submind/persona"
)

// ScriptedGateway 按 persona 编排回复、错误与阻塞行为
type ScriptedGateway struct {
	mu sync.Mutex

	replies  map[string][]string
	failures map[string]map[int]error
	panics   map[string]bool
	blocking map[string]bool
	delay    time.Duration
	onCall   func(req persona.Request)

	counts map[string]int
	calls  []persona.Request
}

// NewScriptedGateway 创建新的 ScriptedGateway
func NewScriptedGateway() *ScriptedGateway {
	return &ScriptedGateway{
		replies:  make(map[string][]string),
		failures: make(map[string]map[int]error),
		panics:   make(map[string]bool),
		blocking: make(map[string]bool),
		counts:   make(map[string]int),
	}
}

// Reply 为 persona 追加按顺序返回的回复
func (g *ScriptedGateway) Reply(personaID string, texts ...string) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[personaID] = append(g.replies[personaID], texts...)
	return g
}

// FailOn 让 persona 的第 call 次调用（从 1 开始）返回 err
func (g *ScriptedGateway) FailOn(personaID string, call int, err error) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failures[personaID] == nil {
		g.failures[personaID] = make(map[int]error)
	}
	g.failures[personaID][call] = err
	return g
}

// PanicFor 让 persona 的调用触发 panic
func (g *ScriptedGateway) PanicFor(personaID string) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.panics[personaID] = true
	return g
}

// BlockFor 让 persona 的调用阻塞直到 ctx 结束
func (g *ScriptedGateway) BlockFor(personaID string) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocking[personaID] = true
	return g
}

// WithDelay 设置每次调用的延迟
func (g *ScriptedGateway) WithDelay(d time.Duration) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
	return g
}

// OnCall 设置调用钩子，在产生回复之前执行
func (g *ScriptedGateway) OnCall(fn func(req persona.Request)) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onCall = fn
	return g
}

// Generate 实现 persona.Gateway
func (g *ScriptedGateway) Generate(ctx context.Context, req persona.Request) (persona.Generation, error) {
	g.mu.Lock()
	g.counts[req.PersonaID]++
	n := g.counts[req.PersonaID]
	g.calls = append(g.calls, req)
	onCall, delay := g.onCall, g.delay
	block, panics := g.blocking[req.PersonaID], g.panics[req.PersonaID]
	failure := g.failures[req.PersonaID][n]
	var text string
	if queue := g.replies[req.PersonaID]; len(queue) > 0 {
		text = queue[0]
		g.replies[req.PersonaID] = queue[1:]
	} else {
		text = NovelReply(req.PersonaID, n)
	}
	g.mu.Unlock()

	if onCall != nil {
		onCall(req)
	}
	if panics {
		panic(fmt.Sprintf("scripted panic for %s", req.PersonaID))
	}
	if block {
		<-ctx.Done()
		return persona.Generation{}, ctx.Err()
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return persona.Generation{}, ctx.Err()
		case <-timer.C:
		}
	}
	if failure != nil {
		return persona.Generation{}, failure
	}
	return persona.Generation{Text: text, Model: req.Model, Tokens: 7}, nil
}

// Calls 返回调用记录
func (g *ScriptedGateway) Calls() []persona.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]persona.Request, len(g.calls))
	copy(out, g.calls)
	return out
}

// CallCount 返回调用总次数
func (g *ScriptedGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// CallsFor 返回 persona 的调用次数
func (g *ScriptedGateway) CallsFor(personaID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[personaID]
}

// NovelReply 生成与其他 persona 及其他轮次都不相似的文本
func NovelReply(personaID string, n int) string {
	return fmt.Sprintf("%s%d observes q%s%d while considering z%s%d carefully",
		personaID, n, personaID, n, personaID, n)
}
