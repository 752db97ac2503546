// Package retry 提供带指数退避与抖动的重试器。
//
// 编排器用它实现生成失败的重试策略：只有被分类为可重试的错误
// （上游 5xx、超时、限流）才会再次调用，调用方取消时立即返回。
package retry
