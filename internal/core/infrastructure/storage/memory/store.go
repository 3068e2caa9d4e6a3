// Package memory 提供基于BigCache的状态读缓存
//
// CachedStore 包装持久化后端：读取命中时直接返回，未命中时读后端并缓存存在的值；
// Apply 成功后按变更更新缓存，删除的键从缓存移除。缓存从不保存"不存在"。
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"
	memoryconfig "github.com/weisyn/executive/internal/config/storage/memory"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
)

// CachedStore 带读缓存的 KVStore
type CachedStore struct {
	inner  storage.KVStore
	cache  *bigcache.BigCache
	logger log.Logger

	hits   uint64
	misses uint64
}

var _ storage.KVStore = (*CachedStore)(nil)

// New 创建带读缓存的存储
func New(ctx context.Context, inner storage.KVStore, config *memoryconfig.Config, logger log.Logger) (*CachedStore, error) {
	if inner == nil {
		return nil, fmt.Errorf("底层存储不能为空")
	}
	if config == nil {
		config = memoryconfig.New(nil)
	}
	opts := config.GetOptions()

	cacheConfig := bigcache.DefaultConfig(opts.LifeWindow)
	cacheConfig.Shards = opts.Shards
	cacheConfig.CleanWindow = opts.CleanWindow
	cacheConfig.MaxEntrySize = opts.MaxEntrySize
	cacheConfig.MaxEntriesInWindow = opts.MaxEntries
	cacheConfig.HardMaxCacheSize = opts.MaxMemoryMB
	cacheConfig.Verbose = false

	cache, err := bigcache.New(ctx, cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("创建BigCache实例失败: %w", err)
	}

	return &CachedStore{inner: inner, cache: cache, logger: logger}, nil
}

// Get 先查缓存，未命中时读后端
func (s *CachedStore) Get(key []byte) ([]byte, bool, error) {
	if v, err := s.cache.Get(string(key)); err == nil {
		atomic.AddUint64(&s.hits, 1)
		return v, true, nil
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) && s.logger != nil {
		s.logger.Warnf("读取缓存失败: %v", err)
	}
	atomic.AddUint64(&s.misses, 1)

	v, found, err := s.inner.Get(key)
	if err != nil || !found {
		return v, found, err
	}
	if err := s.cache.Set(string(key), v); err != nil && s.logger != nil {
		s.logger.Debugf("写入缓存失败: %v", err)
	}
	return v, true, nil
}

// Iterate 直接遍历后端
func (s *CachedStore) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return s.inner.Iterate(prefix, fn)
}

// Apply 写入后端，成功后同步缓存
func (s *CachedStore) Apply(ctx context.Context, changes []storage.Change) error {
	if err := s.inner.Apply(ctx, changes); err != nil {
		// 后端失败时缓存可能已过时，全部清空
		if resetErr := s.cache.Reset(); resetErr != nil && s.logger != nil {
			s.logger.Warnf("重置缓存失败: %v", resetErr)
		}
		return err
	}
	for _, c := range changes {
		key := string(c.Key)
		if c.Deleted {
			_ = s.cache.Delete(key)
			continue
		}
		if err := s.cache.Set(key, c.Value); err != nil {
			_ = s.cache.Delete(key)
		}
	}
	return nil
}

// Stats 返回缓存命中与未命中次数
func (s *CachedStore) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&s.hits), atomic.LoadUint64(&s.misses)
}

// Close 关闭缓存与底层存储
func (s *CachedStore) Close() error {
	cacheErr := s.cache.Close()
	if err := s.inner.Close(); err != nil {
		return err
	}
	return cacheErr
}
