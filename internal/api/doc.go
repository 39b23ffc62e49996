// Package api 通过 HTTP 暴露动作调用、执行记录与运行指标。
package api
