// Package registry 有序模块注册表与调用路由
//
// 注册顺序即 OnInitialize 顺序；OnFinalize 使用 ReverseHooks 的严格逆序。
package registry

import (
	"context"
	"fmt"

	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/types"
)

// Registry 模块注册表，构造后不可变，可并发读取
type Registry struct {
	modules []executive.Module
	byName  map[string]executive.Module
}

var _ executive.Registry = (*Registry)(nil)

// New 按顺序注册模块；模块名必须唯一
func New(modules ...executive.Module) (*Registry, error) {
	r := &Registry{byName: make(map[string]executive.Module, len(modules))}
	for i, m := range modules {
		if m == nil {
			return nil, fmt.Errorf("第 %d 个模块不能为空", i)
		}
		name := m.Name()
		if name == "" {
			return nil, fmt.Errorf("第 %d 个模块名称不能为空", i)
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("模块 %s 重复注册", name)
		}
		r.modules = append(r.modules, m)
		r.byName[name] = m
	}
	return r, nil
}

// Hooks 注册顺序
func (r *Registry) Hooks() []executive.Module {
	out := make([]executive.Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// ReverseHooks 注册顺序的严格逆序
func (r *Registry) ReverseHooks() []executive.Module {
	out := make([]executive.Module, len(r.modules))
	for i, m := range r.modules {
		out[len(r.modules)-1-i] = m
	}
	return out
}

// Module 按名称查找
func (r *Registry) Module(name string) (executive.Module, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Names 注册顺序的模块名
func (r *Registry) Names() []string {
	names := make([]string, len(r.modules))
	for i, m := range r.modules {
		names[i] = m.Name()
	}
	return names
}

// OffchainWorkers 实现链下任务能力的模块（注册顺序）
func (r *Registry) OffchainWorkers() []executive.Module {
	var out []executive.Module
	for _, m := range r.modules {
		if _, ok := m.(executive.OffchainWorker); ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) dispatchable(call types.Call) (executive.Dispatchable, error) {
	m, ok := r.byName[call.Module]
	if !ok {
		return nil, types.NewValidityError(types.UnknownModule, "模块 %s 未注册", call.Module)
	}
	d, ok := m.(executive.Dispatchable)
	if !ok {
		return nil, types.NewValidityError(types.UnknownModule, "模块 %s 不提供可分发调用", call.Module)
	}
	return d, nil
}

// CallInfo 路由到目标模块
func (r *Registry) CallInfo(call types.Call) (types.DispatchInfo, error) {
	d, err := r.dispatchable(call)
	if err != nil {
		return types.DispatchInfo{}, err
	}
	return d.CallInfo(call)
}

// Dispatch 路由到目标模块
func (r *Registry) Dispatch(ctx context.Context, env executive.Env, origin types.Origin, call types.Call) ([]types.Event, error) {
	d, err := r.dispatchable(call)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(ctx, env, origin, call)
}
