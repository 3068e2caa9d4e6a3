package testutil

import (
	"github.com/weisyn/executive/internal/core/executive/interfaces"
	"github.com/weisyn/executive/internal/core/executive/weight"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// EventNames 返回事件记录的 module.name 列表
func EventNames(records []types.EventRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Event.Module+"."+r.Event.Name)
	}
	return names
}

// CountEvents 统计指定事件出现的次数
func CountEvents(records []types.EventRecord, module, name string) int {
	n := 0
	for _, r := range records {
		if r.Event.Module == module && r.Event.Name == name {
			n++
		}
	}
	return n
}

// ModuleEnv 构造直接调用模块钩子与分发使用的区块环境
func ModuleEnv(state storage.State, number types.BlockNumber) *interfaces.ExecutionContext {
	header := &types.Header{Number: number}
	parent := types.ChainHead{}
	if number > 0 {
		parent.Number = number - 1
	}
	meter := weight.NewMeter(types.WeightLimits{Soft: ^types.Weight(0), Operational: ^types.Weight(0), Hard: ^types.Weight(0)})
	ectx := interfaces.NewExecutionContext(types.ModeAuthor, parent, header, state, meter)
	ectx.EnterPhase(types.PhaseApplyTransaction, 0)
	return ectx
}
