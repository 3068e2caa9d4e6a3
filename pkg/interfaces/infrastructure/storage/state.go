// Package storage 定义执行器的存储协作接口
//
// 💾 **两层存储模型**
// - KVStore：持久化键值后端（BadgerDB），提供有序遍历与原子批量写入
// - State：执行期间的可回滚状态视图（Overlay），支持嵌套检查点
//
// 执行器只通过 State 读写状态；状态根的计算由 State 实现负责。
package storage

import (
	"errors"

	"github.com/weisyn/executive/pkg/types"
)

var (
	// ErrUnknownCheckpoint 检查点句柄不存在或已失效
	ErrUnknownCheckpoint = errors.New("检查点不存在或已失效")

	// ErrCheckpointOrder 提交了非栈顶检查点（必须先处理嵌套检查点）
	ErrCheckpointOrder = errors.New("检查点必须按栈顺序提交")
)

// Handle 检查点句柄
type Handle struct {
	Depth int
	ID    uint64
}

// Reader 只读状态访问
type Reader interface {
	// Get 读取键值；found=false 表示键不存在
	Get(key []byte) (value []byte, found bool, err error)
}

// State 执行期状态视图
//
// 检查点语义：
// - Checkpoint 压入新层，返回句柄
// - Commit 将栈顶层合并到父层；句柄必须是栈顶
// - Rollback 丢弃该句柄及其之上的所有层
type State interface {
	Reader

	Set(key, value []byte) error
	Delete(key []byte) error

	Checkpoint() Handle
	Commit(h Handle) error
	Rollback(h Handle) error

	// Root 计算当前完整视图（基础状态+所有层）的状态根
	Root() (types.Hash, error)
}
