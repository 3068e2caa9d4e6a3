package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/pterm/pterm"
)

// Format 输出格式
type Format string

const (
	// FormatJSON 单行JSON（默认，便于脚本处理）
	FormatJSON Format = "json"
	// FormatPretty 缩进JSON
	FormatPretty Format = "pretty"
	// FormatTable 键值表格
	FormatTable Format = "table"
)

// Formatter 输出格式化器
//
// 数据写入 writer，提示信息写入 logWriter（默认 stderr，避免污染 JSON）。
type Formatter struct {
	format    Format
	writer    io.Writer
	logWriter io.Writer
	silent    bool
}

// NewFormatter 创建格式化器
func NewFormatter(format Format, writer, logWriter io.Writer) (*Formatter, error) {
	switch format {
	case FormatJSON, FormatPretty, FormatTable:
	default:
		return nil, fmt.Errorf("未知输出格式: %s（可选 json|pretty|table）", format)
	}
	if writer == nil {
		writer = os.Stdout
	}
	if logWriter == nil {
		logWriter = os.Stderr
	}
	return &Formatter{format: format, writer: writer, logWriter: logWriter}, nil
}

// SetSilent 静默模式下不输出提示信息
func (f *Formatter) SetSilent(silent bool) {
	f.silent = silent
}

// Print 按格式输出数据
func (f *Formatter) Print(data interface{}) error {
	switch f.format {
	case FormatPretty:
		return f.printJSON(data, true)
	case FormatTable:
		return f.printTable(data)
	default:
		return f.printJSON(data, false)
	}
}

func (f *Formatter) printJSON(data interface{}, indent bool) error {
	encoder := json.NewEncoder(f.writer)
	if indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// printTable 把对象的顶层字段渲染为 字段|值 两列表格
//
// 嵌套值以紧凑JSON显示。
func (f *Formatter) printTable(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// 非对象值退回JSON输出
		return f.printJSON(data, true)
	}

	rows := pterm.TableData{{"字段", "值"}}
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		value := string(fields[key])
		var s string
		if json.Unmarshal(fields[key], &s) == nil {
			value = s
		}
		rows = append(rows, []string{key, value})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(f.writer).WithData(rows).Render()
}

// Success 成功提示
func (f *Formatter) Success(format string, args ...interface{}) {
	if f.silent {
		return
	}
	pterm.Success.WithWriter(f.logWriter).Printfln(format, args...)
}

// Info 普通提示
func (f *Formatter) Info(format string, args ...interface{}) {
	if f.silent {
		return
	}
	pterm.Info.WithWriter(f.logWriter).Printfln(format, args...)
}

// Warning 警告提示
func (f *Formatter) Warning(format string, args ...interface{}) {
	if f.silent {
		return
	}
	pterm.Warning.WithWriter(f.logWriter).Printfln(format, args...)
}

// PrintError 错误提示（静默模式下仍输出）
func (f *Formatter) PrintError(err error) {
	pterm.Error.WithWriter(f.logWriter).Println(err.Error())
}
