package types

import (
	"fmt"
	"time"
)

// OutcomeKind 交易执行结果类型
type OutcomeKind uint8

const (
	// OutcomeSucceeded Applied{succeeded}
	OutcomeSucceeded OutcomeKind = iota + 1
	// OutcomeModuleFailed Applied{module-failed}：业务失败，区块仍然有效
	OutcomeModuleFailed
	// OutcomeUnapplied Unapplied{validity error}：仅出现在出块模式被丢弃的交易上
	OutcomeUnapplied
)

// String 返回结果类型名称
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeModuleFailed:
		return "module_failed"
	case OutcomeUnapplied:
		return "unapplied"
	default:
		return "unknown"
	}
}

// Outcome 单笔交易的分发结果，每笔交易恰好一个
type Outcome struct {
	Index      int            `json:"index"`
	Kind       OutcomeKind    `json:"kind"`
	Weight     Weight         `json:"weight"`
	Fee        Balance        `json:"fee"`
	ModuleErr  *DispatchError `json:"module_error,omitempty"`
	Validity   *ValidityError `json:"validity_error,omitempty"`
	EventCount int            `json:"event_count"`
}

// Applied 是否已应用（成功或模块失败）
func (o Outcome) Applied() bool {
	return o.Kind == OutcomeSucceeded || o.Kind == OutcomeModuleFailed
}

// Event 模块在分发期间产生的事件
type Event struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Data   []byte `json:"data,omitempty"`
}

// EventPhase 事件所处的阶段
type EventPhase uint8

const (
	PhaseInitialization EventPhase = iota + 1
	PhaseApplyTransaction
	PhaseFinalization
)

// EventRecord 区块内事件日志的一条记录
type EventRecord struct {
	Phase            EventPhase `json:"phase"`
	TransactionIndex int        `json:"transaction_index"` // 仅 PhaseApplyTransaction 有效
	Event            Event      `json:"event"`
}

// TransactionTag 交易依赖标签（requires / provides）
type TransactionTag []byte

// String 返回标签的十六进制表示
func (t TransactionTag) String() string {
	return fmt.Sprintf("%x", []byte(t))
}

// ValidTransaction 交易校验通过的结果
type ValidTransaction struct {
	Priority  uint64           `json:"priority"`
	Requires  []TransactionTag `json:"requires"`
	Provides  []TransactionTag `json:"provides"`
	Longevity uint64           `json:"longevity"`
	Propagate bool             `json:"propagate"`
}

// ExecutionMode 编排模式：校验已有区块头或生成新区块头
type ExecutionMode uint8

const (
	ModeVerify ExecutionMode = iota + 1
	ModeAuthor
)

// String 返回模式名称
func (m ExecutionMode) String() string {
	if m == ModeAuthor {
		return "author"
	}
	return "verify"
}

// BlockResult ExecuteBlock 的成功结果
type BlockResult struct {
	Header         *Header       `json:"header"`
	Hash           Hash          `json:"hash"`
	Outcomes       []Outcome     `json:"outcomes"`
	Events         []EventRecord `json:"events"`
	WeightConsumed Weight        `json:"weight_consumed"`
	Duration       time.Duration `json:"duration"`
}

// DroppedTransaction 出块模式下因有效性错误被排除的交易
type DroppedTransaction struct {
	Transaction *Transaction   `json:"transaction"`
	Error       *ValidityError `json:"error"`
}

// AuthoredBlock AuthorBlock 的成功结果
type AuthoredBlock struct {
	Block          *Block               `json:"block"`
	Hash           Hash                 `json:"hash"`
	Outcomes       []Outcome            `json:"outcomes"`
	Events         []EventRecord        `json:"events"`
	Dropped        []DroppedTransaction `json:"dropped"`
	WeightConsumed Weight               `json:"weight_consumed"`
	Exhausted      bool                 `json:"exhausted"` // 是否因权重耗尽而停止
}

// 系统事件：每笔已应用交易恰好对应其中一个
const (
	SystemModule          = "system"
	EventExtrinsicSuccess = "ExtrinsicSuccess"
	EventExtrinsicFailed  = "ExtrinsicFailed"
)
