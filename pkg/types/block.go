package types

import (
	"bytes"
	"fmt"
)

// DigestItemKind 摘要条目类型
type DigestItemKind uint8

const (
	// DigestPreRuntime 执行前由出块方写入（如槽位信息），初始化时原样带入
	DigestPreRuntime DigestItemKind = iota + 1
	// DigestConsensus 模块在执行期间写入的共识信息（如新纪元）
	DigestConsensus
	// DigestSeal 出块签名，执行完成后附加，不参与摘要比对
	DigestSeal
	// DigestOther 其他模块日志
	DigestOther
)

// String 返回摘要类型名称
func (k DigestItemKind) String() string {
	switch k {
	case DigestPreRuntime:
		return "pre_runtime"
	case DigestConsensus:
		return "consensus"
	case DigestSeal:
		return "seal"
	case DigestOther:
		return "other"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// EngineID 摘要条目所属引擎标识
type EngineID [4]byte

// NewEngineID 由字符串构造引擎标识（截断或补零到4字节）
func NewEngineID(s string) EngineID {
	var id EngineID
	copy(id[:], s)
	return id
}

// DigestItem 区块头摘要中的一条不透明日志
type DigestItem struct {
	Kind   DigestItemKind `json:"kind"`
	Engine EngineID       `json:"engine"`
	Data   []byte         `json:"data"`
}

// Equal 判断两个摘要条目是否完全一致
func (d DigestItem) Equal(other DigestItem) bool {
	return d.Kind == other.Kind && d.Engine == other.Engine && bytes.Equal(d.Data, other.Data)
}

// Header 区块头
type Header struct {
	ParentHash       Hash         `json:"parent_hash"`
	Number           BlockNumber  `json:"number"`
	StateRoot        Hash         `json:"state_root"`
	TransactionsRoot Hash         `json:"transactions_root"`
	Digest           []DigestItem `json:"digest"`
}

// Copy 深拷贝区块头
func (h *Header) Copy() *Header {
	if h == nil {
		return nil
	}
	cp := *h
	if len(h.Digest) > 0 {
		cp.Digest = make([]DigestItem, len(h.Digest))
		for i, item := range h.Digest {
			cp.Digest[i] = DigestItem{
				Kind:   item.Kind,
				Engine: item.Engine,
				Data:   append([]byte(nil), item.Data...),
			}
		}
	}
	return &cp
}

// PreRuntimeDigest 返回区块头中的 PreRuntime 摘要条目
func (h *Header) PreRuntimeDigest() []DigestItem {
	return filterDigest(h.Digest, func(k DigestItemKind) bool { return k == DigestPreRuntime })
}

// UnsealedDigest 返回去除 Seal 条目后的摘要
func (h *Header) UnsealedDigest() []DigestItem {
	return filterDigest(h.Digest, func(k DigestItemKind) bool { return k != DigestSeal })
}

func filterDigest(items []DigestItem, keep func(DigestItemKind) bool) []DigestItem {
	var out []DigestItem
	for _, item := range items {
		if keep(item.Kind) {
			out = append(out, item)
		}
	}
	return out
}

// DigestEqual 逐条比较两个摘要序列
func DigestEqual(a, b []DigestItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// String 返回区块头的简要描述
func (h *Header) String() string {
	return fmt.Sprintf("Number=%d ParentHash=%s StateRoot=%s TransactionsRoot=%s Digest=%d",
		h.Number, h.ParentHash.Hex(), h.StateRoot.Hex(), h.TransactionsRoot.Hex(), len(h.Digest))
}

// Block 区块：区块头 + 有序交易序列，构造后不可变
type Block struct {
	Header       *Header        `json:"header"`
	Transactions []*Transaction `json:"transactions"`
}

// ChainHead 当前链头（执行新区块时显式传入的父区块上下文）
type ChainHead struct {
	Number BlockNumber `json:"number"`
	Hash   Hash        `json:"hash"`
}

// String 返回链头描述
func (c ChainHead) String() string {
	return fmt.Sprintf("#%d(%s)", c.Number, c.Hash.TerminalString())
}
