// Package diagnostics 生成插件状态报告，只在命令行显式请求时渲染。
package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"BinkAgent-Bridge/internal/config"
	"BinkAgent-Bridge/internal/host"

	"github.com/olekukonko/tablewriter"
)

// Version 是插件版本。
const Version = "1.0.0"

// ActionStatus 描述一个动作是否具备处理、校验与示例。
type ActionStatus struct {
	Name      string
	Handler   bool
	Validator bool
	Examples  bool
	Similes   []string
}

// SettingStatus 描述一个配置项的状态，Value 已脱敏。
type SettingStatus struct {
	Key     string
	Present bool
	Value   string
}

// Report 是完整的状态报告。
type Report struct {
	Plugin      string
	Version     string
	Actions     []ActionStatus
	Settings    []SettingStatus
	Wallet      bool
	ConfigError string
}

// Build 收集插件与配置状态，不发起任何网络请求。
func Build(p *host.Plugin, settings host.Settings) Report {
	r := Report{Plugin: p.Name, Version: Version}
	for _, h := range p.Actions() {
		a := h.Action()
		r.Actions = append(r.Actions, ActionStatus{
			Name:      a.Name,
			Handler:   true,
			Validator: true,
			Examples:  len(a.Examples) > 0,
			Similes:   a.Similes,
		})
	}

	loaded, err := config.Load(settings)
	if err != nil {
		r.ConfigError = err.Error()
		return r
	}
	redacted := loaded.Redacted()
	for _, key := range config.Keys() {
		r.Settings = append(r.Settings, SettingStatus{
			Key:     key,
			Present: strings.TrimSpace(loaded.Get(key)) != "",
			Value:   redacted[key],
		})
	}
	r.Wallet = loaded.WalletConfigured()
	if err := loaded.Validate(); err != nil {
		r.ConfigError = err.Error()
	}
	return r
}

// Ready 表示配置校验通过。
func (r Report) Ready() bool { return r.ConfigError == "" }

// Render 以表格形式输出报告。
func Render(w io.Writer, r Report) error {
	fmt.Fprintf(w, "%s plugin v%s\n\n", strings.ToUpper(r.Plugin), r.Version)

	settings := tablewriter.NewWriter(w)
	settings.SetHeader([]string{"Setting", "Status", "Value"})
	settings.SetAutoWrapText(false)
	for _, s := range r.Settings {
		settings.Append([]string{s.Key, mark(s.Present, "✗"), s.Value})
	}
	settings.SetFooter([]string{"Wallet", mark(r.Wallet, "?"), ""})
	settings.Render()
	fmt.Fprintln(w)

	actions := tablewriter.NewWriter(w)
	actions.SetHeader([]string{"Action", "H", "V", "E", "Similes"})
	for _, a := range r.Actions {
		similes := "none"
		if len(a.Similes) > 0 {
			similes = strings.Join(a.Similes, ", ")
		}
		actions.Append([]string{a.Name, mark(a.Handler, "✗"), mark(a.Validator, "✗"), mark(a.Examples, "✗"), similes})
	}
	actions.Render()
	fmt.Fprintln(w)

	status := tablewriter.NewWriter(w)
	status.SetHeader([]string{"Plugin Status"})
	state := "Loaded & Ready"
	if !r.Ready() {
		state = "Configuration incomplete"
	}
	status.Append([]string{"Name    : " + r.Plugin})
	status.Append([]string{fmt.Sprintf("Actions : %d", len(r.Actions))})
	status.Append([]string{"Status  : " + state})
	status.Render()

	if !r.Ready() {
		_, err := fmt.Fprintf(w, "\n%s\n", r.ConfigError)
		return err
	}
	return nil
}

func mark(ok bool, missing string) string {
	if ok {
		return "✓"
	}
	return missing
}
