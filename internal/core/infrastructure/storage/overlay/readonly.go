package overlay

import (
	"fmt"

	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// ReadOnlyView 只读状态视图：读取委托给内部视图，所有写入返回 ErrReadOnly
type ReadOnlyView struct {
	inner storage.Reader
}

var _ storage.State = (*ReadOnlyView)(nil)

// WrapReadOnly 直接包装任意 Reader；已是只读视图时原样返回
func WrapReadOnly(r storage.Reader) *ReadOnlyView {
	if ro, ok := r.(*ReadOnlyView); ok {
		return ro
	}
	return &ReadOnlyView{inner: r}
}

func (r *ReadOnlyView) Get(key []byte) ([]byte, bool, error) { return r.inner.Get(key) }

// Iterate 内部视图支持遍历时可用
func (r *ReadOnlyView) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	it, ok := r.inner.(Base)
	if !ok {
		return fmt.Errorf("内部视图不支持遍历")
	}
	return it.Iterate(prefix, fn)
}

func (r *ReadOnlyView) Set([]byte, []byte) error { return types.ErrReadOnly }

func (r *ReadOnlyView) Delete([]byte) error { return types.ErrReadOnly }

// Checkpoint 只读视图上的检查点无任何效果
func (r *ReadOnlyView) Checkpoint() storage.Handle { return storage.Handle{} }

func (r *ReadOnlyView) Commit(storage.Handle) error { return types.ErrReadOnly }

func (r *ReadOnlyView) Rollback(storage.Handle) error { return nil }

func (r *ReadOnlyView) Root() (types.Hash, error) {
	if rooter, ok := r.inner.(interface{ Root() (types.Hash, error) }); ok {
		return rooter.Root()
	}
	return types.Hash{}, fmt.Errorf("内部视图不支持计算状态根")
}
