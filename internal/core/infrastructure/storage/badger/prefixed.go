package badger

import (
	"context"
	"fmt"

	interfaces "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// 键空间前缀
var (
	StatePrefix = []byte("state/") // 运行时状态
	ChainPrefix = []byte("chain/") // 链头、区块体、区块哈希索引
)

// Prefixed 在底层 KVStore 上划出一个键空间
type Prefixed struct {
	inner  interfaces.KVStore
	prefix []byte
}

var (
	_ interfaces.KVStore     = (*Prefixed)(nil)
	_ interfaces.Snapshotter = (*Prefixed)(nil)
)

// NewPrefixed 创建前缀视图
func NewPrefixed(inner interfaces.KVStore, prefix []byte) *Prefixed {
	return &Prefixed{inner: inner, prefix: append([]byte(nil), prefix...)}
}

// Key 返回带前缀的完整键
func (p *Prefixed) Key(key []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(key))
	out = append(out, p.prefix...)
	return append(out, key...)
}

// Changes 为变更加上前缀，用于与其他键空间的变更合并到同一批次
func (p *Prefixed) Changes(changes []interfaces.Change) []interfaces.Change {
	out := make([]interfaces.Change, len(changes))
	for i, c := range changes {
		out[i] = interfaces.Change{Key: p.Key(c.Key), Value: c.Value, Deleted: c.Deleted}
	}
	return out
}

func (p *Prefixed) Get(key []byte) ([]byte, bool, error) {
	return p.inner.Get(p.Key(key))
}

// Iterate 遍历时去掉前缀
func (p *Prefixed) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.prefix)
	return p.inner.Iterate(p.Key(prefix), func(key, value []byte) error {
		return fn(key[n:], value)
	})
}

func (p *Prefixed) Apply(ctx context.Context, changes []interfaces.Change) error {
	return p.inner.Apply(ctx, p.Changes(changes))
}

// Close 前缀视图不拥有底层存储
func (p *Prefixed) Close() error { return nil }

// Snapshot 底层存储快照的前缀视图；底层不支持快照时返回错误
func (p *Prefixed) Snapshot() (interfaces.Snapshot, error) {
	snapshotter, ok := p.inner.(interfaces.Snapshotter)
	if !ok {
		return nil, fmt.Errorf("底层存储 %T 不支持快照", p.inner)
	}
	inner, err := snapshotter.Snapshot()
	if err != nil {
		return nil, err
	}
	return &prefixedSnapshot{view: &Prefixed{inner: snapshotKV{inner}, prefix: p.prefix}, inner: inner}, nil
}

type prefixedSnapshot struct {
	view  *Prefixed
	inner interfaces.Snapshot
}

func (s *prefixedSnapshot) Get(key []byte) ([]byte, bool, error) { return s.view.Get(key) }

func (s *prefixedSnapshot) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return s.view.Iterate(prefix, fn)
}

func (s *prefixedSnapshot) Release() { s.inner.Release() }

// snapshotKV 让快照满足 KVStore，写入一律拒绝
type snapshotKV struct {
	interfaces.Snapshot
}

func (snapshotKV) Apply(context.Context, []interfaces.Change) error {
	return types.ErrReadOnly
}

func (snapshotKV) Close() error { return nil }
