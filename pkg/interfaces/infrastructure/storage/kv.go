package storage

import "context"

// Change 一条持久化变更
type Change struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

// KVStore 持久化键值后端
type KVStore interface {
	Reader

	// Iterate 按键的字节序遍历指定前缀下的所有键值对
	Iterate(prefix []byte, fn func(key, value []byte) error) error

	// Apply 原子地写入一组变更：要么全部生效，要么全部不生效
	Apply(ctx context.Context, changes []Change) error

	// Close 关闭后端
	Close() error
}

// Snapshot 某一时刻已提交数据的只读快照
//
// 快照之后的 Apply 对其不可见；用完必须调用 Release。
type Snapshot interface {
	Reader

	Iterate(prefix []byte, fn func(key, value []byte) error) error

	// Release 释放快照，可重复调用
	Release()
}

// Snapshotter 支持只读快照的后端
type Snapshotter interface {
	Snapshot() (Snapshot, error)
}
