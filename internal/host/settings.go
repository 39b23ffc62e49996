// Package host 是动作与宿主运行时之间的适配层：配置读取、插件清单与上下文提供方。
package host

import (
	"os"
	"strings"

	"BinkAgent-Bridge/internal/config"
)

// Settings 是宿主配置的读取接口。
type Settings = config.HostSettings

// MapSettings 使用内存中的键值作为宿主配置。
type MapSettings map[string]string

// GetSetting 实现 Settings。
func (m MapSettings) GetSetting(key string) string { return m[key] }

// EnvSettings 直接读取进程环境变量。
type EnvSettings struct{}

// GetSetting 实现 Settings。
func (EnvSettings) GetSetting(key string) string { return os.Getenv(key) }

// Layered 依次查询多个来源，返回第一个非空值。
type Layered []Settings

// GetSetting 实现 Settings。
func (l Layered) GetSetting(key string) string {
	for _, s := range l {
		if s == nil {
			continue
		}
		if v := s.GetSetting(key); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
