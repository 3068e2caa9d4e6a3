package event

import eventiface "github.com/weisyn/executive/pkg/interfaces/infrastructure/event"

// 系统事件类型；业务事件类型由业务模块定义
const (
	SystemStarted eventiface.EventType = "system:started"
	SystemStopped eventiface.EventType = "system:stopped"
)
