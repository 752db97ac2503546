/*
Package testutil 提供 submind 测试共享的工具和辅助函数。

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - 转录断言: AssertStrictlyIncreasing / SpeakersOf
  - fixtures: 预定义 persona 与补全响应
  - mocks: 可编排的 Gateway 与 llm.Provider 模拟实现
*/
package testutil
