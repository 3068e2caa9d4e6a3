package executive

import (
	"go.uber.org/fx"

	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/internal/core/executive/codec"
	"github.com/weisyn/executive/internal/core/executive/interfaces"
	logimpl "github.com/weisyn/executive/internal/core/infrastructure/log"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// ModuleInput executive 模块的输入依赖
type ModuleInput struct {
	fx.In

	// ========== 基础设施组件 ==========
	Logger  log.Logger                 `optional:"true"`
	Metrics interfaces.MetricsRecorder `optional:"true"`

	// ========== 配置 ==========
	Options *executiveconfig.ExecutiveOptions

	// ========== 运行时 ==========
	Registry executiveif.Registry
	Nonces   executiveif.NonceKeeper
	Fees     executiveif.FeeCharger
	Recorder executiveif.BlockContextRecorder
	Verifier executiveif.SignatureVerifier
}

// ModuleOutput executive 模块的输出服务
type ModuleOutput struct {
	fx.Out

	Executive executiveif.Executive
	Codec     executiveif.Codec
	Service   *Service
}

// Module 返回 executive 模块的 fx 配置
func Module() fx.Option {
	return fx.Module("executive",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 创建编解码器与执行器
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	logger := logimpl.WithModule(input.Logger, "executive")

	rlpCodec, err := codec.New(input.Options.TransactionsRootScheme)
	if err != nil {
		return ModuleOutput{}, err
	}

	service, err := NewService(Dependencies{
		Options:  input.Options,
		Codec:    rlpCodec,
		Registry: input.Registry,
		Nonces:   input.Nonces,
		Fees:     input.Fees,
		Verifier: input.Verifier,
		Recorder: input.Recorder,
		Logger:   logger,
		Metrics:  input.Metrics,
	})
	if err != nil {
		return ModuleOutput{}, err
	}
	if logger != nil {
		logger.Infof("✅ 区块执行器已创建: root_scheme=%s max_block_weight=%d", rlpCodec.RootScheme(), input.Options.MaxBlockWeight)
	}
	return ModuleOutput{Executive: service, Codec: rlpCodec, Service: service}, nil
}
