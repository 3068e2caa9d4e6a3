package staking

import "github.com/weisyn/executive/pkg/types"

// MaxUnlockingChunks 单个账本同时存在的解绑分块上限
const MaxUnlockingChunks = 32

// EraIndex 纪元序号
type EraIndex = uint64

// UnlockChunk 在 Era 纪元之后可提取的解绑资金
type UnlockChunk struct {
	Value types.Balance
	Era   EraIndex
}

// Ledger 控制账户名下的绑定账本
type Ledger struct {
	Stash types.AccountID
	// Total Active + 所有解绑中的资金
	Total types.Balance
	// Active 参与后续纪元的资金
	Active    types.Balance
	Unlocking []UnlockChunk
}

// consolidateUnlocked 移除 currentEra 时已到期的分块，返回释放的总额
func (l *Ledger) consolidateUnlocked(currentEra EraIndex) types.Balance {
	var released types.Balance
	kept := l.Unlocking[:0]
	for _, chunk := range l.Unlocking {
		if chunk.Era > currentEra {
			kept = append(kept, chunk)
			continue
		}
		released = types.SaturatingAdd(released, chunk.Value)
	}
	l.Unlocking = kept
	l.Total = types.SaturatingSub(l.Total, released)
	return released
}

// rebond 从最近的分块开始把至多 value 的解绑资金重新绑定
func (l *Ledger) rebond(value types.Balance) types.Balance {
	var rebonded types.Balance
	for len(l.Unlocking) > 0 && rebonded < value {
		last := &l.Unlocking[len(l.Unlocking)-1]
		if rebonded+last.Value <= value {
			rebonded += last.Value
			l.Active += last.Value
			l.Unlocking = l.Unlocking[:len(l.Unlocking)-1]
			continue
		}
		diff := value - rebonded
		rebonded += diff
		l.Active += diff
		last.Value -= diff
	}
	return rebonded
}

// ValidatorPrefs 验证人偏好；Commission 以十亿分之一为单位
type ValidatorPrefs struct {
	Commission uint64
}

// Nominations 提名人的目标验证人（按地址排序、去重）
type Nominations struct {
	Targets []types.AccountID
	// SubmittedIn 提交提名时的纪元
	SubmittedIn EraIndex
}

// RewardDestination 收益去向
type RewardDestination uint8

const (
	// RewardStaked 收益转入资金账户并追加绑定
	RewardStaked RewardDestination = iota
	// RewardStash 收益转入资金账户，不追加绑定
	RewardStash
	// RewardController 收益转入控制账户
	RewardController
)

// MaxCommission 100% 佣金
const MaxCommission = 1_000_000_000

// ActiveEra 当前活跃纪元
type ActiveEra struct {
	Index EraIndex
	// Start 纪元起始区块，在纪元第一个区块的 OnFinalize 中写入
	Start   types.BlockNumber
	Started bool
}

// EraDigest 新纪元写入区块头的共识摘要数据
type EraDigest struct {
	Era     EraIndex
	SetHash types.Hash
}
