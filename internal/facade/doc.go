// Package facade 负责为一次动作调用组装智能体：按能力目录构造并初始化插件，
// 生成带钱包地址的系统提示词，执行指令并整理输出。
package facade
