// Package support 提供运行时模块共用的存储与调用辅助
//
// 存储键格式：<module>:<item>:<key-bytes>，值统一使用 RLP 编码。
package support

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
)

// Key 构造存储键
func Key(module, item string, parts ...[]byte) []byte {
	key := []byte(module + ":" + item)
	for _, p := range parts {
		key = append(key, ':')
		key = append(key, p...)
	}
	return key
}

// Uint64Bytes 8字节大端编码（用作键的一部分，保证按数值有序）
func Uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// Get 读取并解码值；不存在时返回 false
func Get(state storage.Reader, key []byte, out interface{}) (bool, error) {
	data, found, err := state.Get(key)
	if err != nil {
		return false, fmt.Errorf("读取 %s 失败: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("解码 %s 失败: %w", key, err)
	}
	return true, nil
}

// Put 编码并写入值
func Put(state storage.State, key []byte, v interface{}) error {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("编码 %s 失败: %w", key, err)
	}
	return state.Set(key, data)
}

// GetUint64 读取整数，不存在视为0
func GetUint64(state storage.Reader, key []byte) (uint64, error) {
	var v uint64
	if _, err := Get(state, key, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// PutUint64 写入整数；0 删除该键
func PutUint64(state storage.State, key []byte, v uint64) error {
	if v == 0 {
		return state.Delete(key)
	}
	return Put(state, key, v)
}

// Has 键是否存在
func Has(state storage.Reader, key []byte) (bool, error) {
	_, found, err := state.Get(key)
	return found, err
}
