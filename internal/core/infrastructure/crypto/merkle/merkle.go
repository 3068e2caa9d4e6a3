// Package merkle 提供二叉默克尔根计算
//
// 算法：
// 1. 对每个叶子数据计算哈希
// 2. 两两配对，父节点 = H(left || right)
// 3. 节点数为奇数时复制最后一个节点
// 4. 重复直到只剩根节点
//
// 空序列的根为 H(空)。
package merkle

import (
	"fmt"

	"github.com/weisyn/executive/internal/core/infrastructure/crypto/hash"
	"github.com/weisyn/executive/pkg/types"
)

// Root 计算叶子数据序列的默克尔根
func Root(hasher hash.Hasher, leaves [][]byte) (types.Hash, error) {
	if hasher == nil {
		return types.Hash{}, fmt.Errorf("hasher 不能为空")
	}
	if len(leaves) == 0 {
		h, err := hasher.Hash(nil)
		if err != nil {
			return types.Hash{}, err
		}
		return types.BytesToHash(h), nil
	}

	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		h, err := hashChecked(hasher, leaf)
		if err != nil {
			return types.Hash{}, fmt.Errorf("计算叶子%d哈希失败: %w", i, err)
		}
		level[i] = h
	}

	root, err := buildMerkleTree(hasher, level)
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(root), nil
}

// buildMerkleTree 逐层向上计算
func buildMerkleTree(hasher hash.Hasher, hashes [][]byte) ([]byte, error) {
	for len(hashes) > 1 {
		if len(hashes)%2 == 1 {
			hashes = append(hashes, hashes[len(hashes)-1])
		}
		next := make([][]byte, 0, len(hashes)/2)
		for i := 0; i < len(hashes); i += 2 {
			combined := make([]byte, 0, len(hashes[i])+len(hashes[i+1]))
			combined = append(combined, hashes[i]...)
			combined = append(combined, hashes[i+1]...)
			parent, err := hashChecked(hasher, combined)
			if err != nil {
				return nil, fmt.Errorf("计算父节点哈希失败: %w", err)
			}
			next = append(next, parent)
		}
		hashes = next
	}
	return hashes[0], nil
}

func hashChecked(hasher hash.Hasher, data []byte) ([]byte, error) {
	h, err := hasher.Hash(data)
	if err != nil {
		return nil, err
	}
	if len(h) != 32 {
		return nil, fmt.Errorf("哈希长度错误: 期望32字节, 得到%d字节", len(h))
	}
	return h, nil
}
