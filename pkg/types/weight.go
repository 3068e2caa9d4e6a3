package types

// Weight 抽象资源消耗单位
type Weight = uint64

// DispatchClass 调用的权重类别
type DispatchClass uint8

const (
	// ClassNormal 普通交易，受软上限约束
	ClassNormal DispatchClass = iota
	// ClassOperational 运维交易，可使用软上限之上的预留额度
	ClassOperational
	// ClassMandatory 强制交易（固有交易、钩子），可越过软上限，但不得越过硬上限
	ClassMandatory
)

// String 返回类别名称
func (c DispatchClass) String() string {
	switch c {
	case ClassNormal:
		return "normal"
	case ClassOperational:
		return "operational"
	case ClassMandatory:
		return "mandatory"
	default:
		return "unknown"
	}
}

// Pays 是否需要支付手续费
type Pays bool

const (
	PaysYes Pays = true
	PaysNo  Pays = false
)

// DispatchInfo 调用的静态分发信息（由模块声明）
type DispatchInfo struct {
	Weight  Weight        `json:"weight"`
	Class   DispatchClass `json:"class"`
	PaysFee Pays          `json:"pays_fee"`
}

// WeightLimits 区块权重上限
//
// - Normal 类交易：consumed+amount ≤ Soft
// - Operational 类交易：consumed+amount ≤ Operational（Soft + 运维预留）
// - Mandatory 类交易：可越过软上限，consumed+amount ≤ Hard
type WeightLimits struct {
	Soft        Weight `json:"soft"`
	Operational Weight `json:"operational"`
	Hard        Weight `json:"hard"`
}

// For 返回指定类别适用的上限
func (l WeightLimits) For(class DispatchClass) Weight {
	switch class {
	case ClassOperational:
		return l.Operational
	case ClassMandatory:
		return l.Hard
	default:
		return l.Soft
	}
}
