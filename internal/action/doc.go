// Package action 实现宿主运行时可调用的两个动作：EXECUTE_TRANSACTION 与 GET_WALLET_INFO。
//
// 每条消息的处理流程是：解析并校验配置，派生钱包，交给 facade 执行，
// 最后恰好回调一次宿主。成功时回调格式化后的回复，失败时回调固定的兜底文本，
// 返回值始终表示本次处理是否成功。
package action
