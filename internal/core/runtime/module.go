// Package runtime 组装运行时模块：system → timestamp → balances → staking
//
// 注册顺序即 OnInitialize 顺序，OnFinalize 按严格逆序执行。
package runtime

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	genesisconfig "github.com/weisyn/executive/internal/config/genesis"
	"github.com/weisyn/executive/internal/core/infrastructure/clock"
	corelog "github.com/weisyn/executive/internal/core/infrastructure/log"
	"github.com/weisyn/executive/internal/core/runtime/balances"
	"github.com/weisyn/executive/internal/core/runtime/registry"
	"github.com/weisyn/executive/internal/core/runtime/staking"
	"github.com/weisyn/executive/internal/core/runtime/system"
	"github.com/weisyn/executive/internal/core/runtime/timestamp"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	clockif "github.com/weisyn/executive/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// Runtime 已注册的运行时模块
type Runtime struct {
	Registry  *registry.Registry
	System    *system.Module
	Timestamp *timestamp.Module
	Balances  *balances.Module
	Staking   *staking.Module
}

// New 按创世配置构建运行时；clock 为 nil 时使用系统时间
//
// extra 中的模块注册在内置模块之后。
func New(options *genesisconfig.GenesisOptions, clock func() time.Time, logger log.Logger, extra ...executiveif.Module) (*Runtime, error) {
	if options == nil {
		return nil, fmt.Errorf("创世配置不能为空")
	}
	sys := system.New(corelog.WithModule(logger, system.ModuleName))
	ts := timestamp.New(clock)
	bal := balances.New(options.ExistentialDeposit, corelog.WithModule(logger, balances.ModuleName))
	stk, err := staking.New(staking.Options{
		BlocksPerEra:    options.BlocksPerEra,
		BondingDuration: options.BondingDuration,
		MinimumBond:     options.MinimumBond,
	}, bal, corelog.WithModule(logger, staking.ModuleName))
	if err != nil {
		return nil, fmt.Errorf("创建 staking 模块失败: %w", err)
	}
	modules := append([]executiveif.Module{sys, ts, bal, stk}, extra...)
	reg, err := registry.New(modules...)
	if err != nil {
		return nil, fmt.Errorf("注册运行时模块失败: %w", err)
	}
	return &Runtime{Registry: reg, System: sys, Timestamp: ts, Balances: bal, Staking: stk}, nil
}

// ModuleInput 运行时模块输入
type ModuleInput struct {
	fx.In

	Genesis *genesisconfig.GenesisOptions
	Clock   clockif.Clock `optional:"true"`
	Logger  log.Logger    `optional:"true"`
}

// ModuleOutput 运行时模块输出
type ModuleOutput struct {
	fx.Out

	Runtime  *Runtime
	Registry executiveif.Registry
	Nonces   executiveif.NonceKeeper
	Fees     executiveif.FeeCharger
	Recorder executiveif.BlockContextRecorder
}

// Module 返回运行时 fx 模块
func Module() fx.Option {
	return fx.Module("runtime",
		fx.Provide(ProvideRuntime),
	)
}

// ProvideRuntime 构建运行时并导出执行器需要的协作者
func ProvideRuntime(input ModuleInput) (ModuleOutput, error) {
	rt, err := New(input.Genesis, clock.NowFunc(input.Clock), input.Logger)
	if err != nil {
		return ModuleOutput{}, err
	}
	if input.Logger != nil {
		input.Logger.Infof("运行时模块已注册: %v", rt.Registry.Names())
	}
	return ModuleOutput{
		Runtime:  rt,
		Registry: rt.Registry,
		Nonces:   rt.System,
		Fees:     rt.Balances,
		Recorder: rt.System,
	}, nil
}
