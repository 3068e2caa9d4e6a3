// Package overlay 提供执行期的可回滚状态视图
//
// 📋 **层模型**
// - base：只读的持久化状态（KVStore 或另一个视图）
// - layers[0]：根层，保存区块内所有已提交的写入，永不弹出
// - layers[1..]：嵌套检查点，Commit 合并到父层，Rollback 丢弃该层及以上
//
// 检查点句柄带唯一 ID：已回滚层的句柄不会误匹配后来压入的同深度层。
package overlay

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// Base 视图的底层状态，需要有序遍历以计算状态根
type Base interface {
	storage.Reader
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

type entry struct {
	value   []byte
	deleted bool
}

type layer struct {
	id     uint64
	writes map[string]entry
}

func newLayer(id uint64) *layer {
	return &layer{id: id, writes: make(map[string]entry)}
}

// Overlay 实现 storage.State
type Overlay struct {
	mu     sync.RWMutex
	base   Base
	layers []*layer
	nextID uint64
}

var _ storage.State = (*Overlay)(nil)

// New 在 base 之上创建视图；base 为 nil 时视为空状态
func New(base Base) *Overlay {
	if base == nil {
		base = emptyBase{}
	}
	return &Overlay{
		base:   base,
		layers: []*layer{newLayer(0)},
		nextID: 1,
	}
}

// Get 自顶向下查找，最后读取 base
func (o *Overlay) Get(key []byte) ([]byte, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	k := string(key)
	for i := len(o.layers) - 1; i >= 0; i-- {
		if e, ok := o.layers[i].writes[k]; ok {
			if e.deleted {
				return nil, false, nil
			}
			return cloneBytes(e.value), true, nil
		}
	}
	return o.base.Get(key)
}

// Set 写入栈顶层
func (o *Overlay) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.top().writes[string(key)] = entry{value: cloneBytes(value)}
	return nil
}

// Delete 在栈顶层记录删除
func (o *Overlay) Delete(key []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.top().writes[string(key)] = entry{deleted: true}
	return nil
}

// Checkpoint 压入新层
func (o *Overlay) Checkpoint() storage.Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	l := newLayer(o.nextID)
	o.nextID++
	o.layers = append(o.layers, l)
	return storage.Handle{Depth: len(o.layers) - 1, ID: l.id}
}

// Commit 将栈顶层合并到父层
func (o *Overlay) Commit(h storage.Handle) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkHandle(h); err != nil {
		return err
	}
	if h.Depth != len(o.layers)-1 {
		return fmt.Errorf("%w: depth=%d top=%d", storage.ErrCheckpointOrder, h.Depth, len(o.layers)-1)
	}
	top := o.layers[h.Depth]
	parent := o.layers[h.Depth-1]
	for k, e := range top.writes {
		parent.writes[k] = e
	}
	o.layers = o.layers[:h.Depth]
	return nil
}

// Rollback 丢弃句柄对应的层及其之上的所有层
func (o *Overlay) Rollback(h storage.Handle) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkHandle(h); err != nil {
		return err
	}
	for i := h.Depth; i < len(o.layers); i++ {
		o.layers[i] = nil
	}
	o.layers = o.layers[:h.Depth]
	return nil
}

func (o *Overlay) checkHandle(h storage.Handle) error {
	if h.Depth < 1 || h.Depth >= len(o.layers) || o.layers[h.Depth].id != h.ID {
		return fmt.Errorf("%w: depth=%d id=%d", storage.ErrUnknownCheckpoint, h.Depth, h.ID)
	}
	return nil
}

// Depth 当前打开的检查点数量
func (o *Overlay) Depth() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.layers) - 1
}

// Changes 返回相对 base 的全部变更（所有层合并），按键排序
func (o *Overlay) Changes() []storage.Change {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mergedChanges()
}

func (o *Overlay) mergedChanges() []storage.Change {
	merged := make(map[string]entry)
	for _, l := range o.layers {
		for k, e := range l.writes {
			merged[k] = e
		}
	}
	changes := make([]storage.Change, 0, len(merged))
	for k, e := range merged {
		changes = append(changes, storage.Change{Key: []byte(k), Value: cloneBytes(e.value), Deleted: e.deleted})
	}
	sort.Slice(changes, func(i, j int) bool { return bytes.Compare(changes[i].Key, changes[j].Key) < 0 })
	return changes
}

// Fork 复制当前完整视图（所有层展平到新视图的根层），与原视图共享只读 base
func (o *Overlay) Fork() *Overlay {
	o.mu.RLock()
	defer o.mu.RUnlock()

	fork := New(o.base)
	root := fork.layers[0]
	for _, c := range o.mergedChanges() {
		root.writes[string(c.Key)] = entry{value: c.Value, deleted: c.Deleted}
	}
	return fork
}

// Iterate 按键序遍历完整视图（base + 所有层）中前缀下的键值
func (o *Overlay) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	o.mu.RLock()
	entries, err := o.snapshot(prefix)
	o.mu.RUnlock()
	if err != nil {
		return err
	}
	for _, kv := range entries {
		if err := fn(kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}

type kv struct {
	key   []byte
	value []byte
}

// snapshot 合并 base 与各层，返回按键排序的存活键值；调用方持有读锁
func (o *Overlay) snapshot(prefix []byte) ([]kv, error) {
	view := make(map[string][]byte)
	err := o.base.Iterate(prefix, func(key, value []byte) error {
		view[string(key)] = cloneBytes(value)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("遍历基础状态失败: %w", err)
	}
	for _, c := range o.mergedChanges() {
		if !bytes.HasPrefix(c.Key, prefix) {
			continue
		}
		if c.Deleted {
			delete(view, string(c.Key))
		} else {
			view[string(c.Key)] = c.Value
		}
	}
	out := make([]kv, 0, len(view))
	for k, v := range view {
		out = append(out, kv{key: []byte(k), value: v})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].key, out[j].key) < 0 })
	return out, nil
}

// Root 计算完整视图的状态根
func (o *Overlay) Root() (types.Hash, error) {
	o.mu.RLock()
	entries, err := o.snapshot(nil)
	o.mu.RUnlock()
	if err != nil {
		return types.Hash{}, err
	}
	return stateRoot(entries)
}

func (o *Overlay) top() *layer {
	return o.layers[len(o.layers)-1]
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// emptyBase 空的基础状态
type emptyBase struct{}

func (emptyBase) Get([]byte) ([]byte, bool, error)                      { return nil, false, nil }
func (emptyBase) Iterate([]byte, func(key, value []byte) error) error { return nil }
