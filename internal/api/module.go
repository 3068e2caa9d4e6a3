// Package api 对外接口层
package api

import (
	"go.uber.org/fx"

	"github.com/weisyn/executive/internal/api/http"
)

// Module 返回API模块选项
//
// 目前只有 HTTP(gin) 一种接口。
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),
	)
}
