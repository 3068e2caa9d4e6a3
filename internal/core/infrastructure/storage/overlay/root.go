package overlay

import (
	"bytes"
	"fmt"
	"sort"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/weisyn/executive/pkg/types"
)

// stateRoot 以 keccak256(key) 为路径、rlp(value) 为叶子构建 Merkle-Patricia trie
//
// StackTrie 要求路径严格递增插入，因此先按哈希后的键排序。
// 空状态的根为以太坊空 trie 根。
func stateRoot(entries []kv) (types.Hash, error) {
	if len(entries) == 0 {
		return gethtypes.EmptyRootHash, nil
	}

	type leaf struct {
		path  []byte
		value []byte
	}
	leaves := make([]leaf, 0, len(entries))
	for _, e := range entries {
		enc, err := rlp.EncodeToBytes(e.value)
		if err != nil {
			return types.Hash{}, fmt.Errorf("编码状态值失败: %w", err)
		}
		leaves = append(leaves, leaf{path: crypto.Keccak256(e.key), value: enc})
	}
	sort.Slice(leaves, func(i, j int) bool { return bytes.Compare(leaves[i].path, leaves[j].path) < 0 })

	st := trie.NewStackTrie(nil)
	for _, l := range leaves {
		if err := st.Update(l.path, l.value); err != nil {
			return types.Hash{}, fmt.Errorf("构建状态trie失败: %w", err)
		}
	}
	return st.Hash(), nil
}
