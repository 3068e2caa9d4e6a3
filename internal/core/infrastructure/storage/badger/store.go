// Package badger 提供基于BadgerDB的持久化键值后端
//
// 执行器只在区块导入成功后通过 Apply 一次性写入该区块的全部状态变更与链头，
// 单个 Badger 事务保证要么全部生效，要么全部不生效。
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	badgerdb "github.com/dgraph-io/badger/v3"
	badgerconfig "github.com/weisyn/executive/internal/config/storage/badger"
	log "github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	interfaces "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"go.uber.org/zap"
)

// ErrClosing 存储正在关闭
var ErrClosing = errors.New("badger store is closing")

// Store 实现 storage.KVStore
type Store struct {
	db     *badgerdb.DB
	config *badgerconfig.Config
	logger log.Logger

	// 关闭过程中拒绝写入与新快照，并等待进行中的写事务与未释放的快照
	closing int32
	writeWg sync.WaitGroup
}

var (
	_ interfaces.KVStore     = (*Store)(nil)
	_ interfaces.Snapshotter = (*Store)(nil)
)

// New 打开 BadgerDB
func New(config *badgerconfig.Config, logger log.Logger) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("badger 配置不能为空")
	}
	if logger == nil {
		logger = nopLogger{}
	}

	var opts badgerdb.Options
	if config.IsInMemory() {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
		logger.Info("🧠 使用内存BadgerDB（数据不持久化）")
	} else {
		dataDir := config.GetPath()
		if dataDir == "" {
			return nil, fmt.Errorf("BadgerDB数据目录不能为空")
		}
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("无法创建BadgerDB数据目录: %w", err)
		}
		opts = badgerdb.DefaultOptions(dataDir)
		opts.SyncWrites = config.IsSyncWritesEnabled()
		opts.ValueLogFileSize = 512 << 20
		logger.Infof("初始化BadgerDB存储，数据目录: %s", dataDir)
	}

	if size := config.GetMemTableSize(); size > 0 {
		opts.MemTableSize = size
	}
	opts.BlockCacheSize = 64 << 20
	opts.IndexCacheSize = 64 << 20
	opts.NumMemtables = 2
	opts.NumCompactors = 2
	opts.Logger = newBadgerLogger(logger)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开BadgerDB失败: %w", err)
	}

	return &Store{db: db, config: config, logger: logger}, nil
}

// NewInMemory 打开内存 BadgerDB（测试与临时链使用）
func NewInMemory(logger log.Logger) (*Store, error) {
	return New(badgerconfig.NewInMemory(), logger)
}

func (s *Store) beginWrite() (func(), error) {
	if atomic.LoadInt32(&s.closing) == 1 {
		return nil, ErrClosing
	}
	s.writeWg.Add(1)
	if atomic.LoadInt32(&s.closing) == 1 {
		s.writeWg.Done()
		return nil, ErrClosing
	}
	return s.writeWg.Done, nil
}

// Get 获取指定键的值
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	var (
		valCopy []byte
		found   bool
	)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		valCopy, found, err = get(txn, key)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("badger获取键失败: %w", err)
	}
	return valCopy, found, nil
}

// Iterate 按字节序遍历前缀下的键值对；fn 返回错误时停止遍历
func (s *Store) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return iterate(txn, prefix, fn)
	})
	if err != nil {
		return fmt.Errorf("badger前缀扫描失败: %w", err)
	}
	return nil
}

// Snapshot 打开只读事务作为快照；Close 会等待所有快照释放
func (s *Store) Snapshot() (interfaces.Snapshot, error) {
	done, err := s.beginWrite()
	if err != nil {
		return nil, err
	}
	return &snapshot{txn: s.db.NewTransaction(false), done: done}, nil
}

func get(txn *badgerdb.Txn, key []byte) ([]byte, bool, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func iterate(txn *badgerdb.Txn, prefix []byte, fn func(key, value []byte) error) error {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		keyCopy := item.KeyCopy(nil)
		valCopy, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(keyCopy, valCopy); err != nil {
			return err
		}
	}
	return nil
}

// snapshot 基于 Badger 只读事务的 MVCC 快照
type snapshot struct {
	txn  *badgerdb.Txn
	done func()
	once sync.Once
}

var _ interfaces.Snapshot = (*snapshot)(nil)

func (s *snapshot) Get(key []byte) ([]byte, bool, error) {
	val, found, err := get(s.txn, key)
	if err != nil {
		return nil, false, fmt.Errorf("badger快照读取失败: %w", err)
	}
	return val, found, nil
}

func (s *snapshot) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	if err := iterate(s.txn, prefix, fn); err != nil {
		return fmt.Errorf("badger快照扫描失败: %w", err)
	}
	return nil
}

func (s *snapshot) Release() {
	s.once.Do(func() {
		s.txn.Discard()
		s.done()
	})
}

// Apply 在单个事务中写入全部变更
func (s *Store) Apply(ctx context.Context, changes []interfaces.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		for _, c := range changes {
			var opErr error
			if c.Deleted {
				opErr = txn.Delete(c.Key)
			} else {
				opErr = txn.Set(c.Key, c.Value)
			}
			if opErr != nil {
				return opErr
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrTxnTooBig) {
			return fmt.Errorf("批量写入超过BadgerDB单事务上限(%d条变更): %w", len(changes), err)
		}
		return fmt.Errorf("badger批量写入失败: %w", err)
	}
	return nil
}

// Close 关闭存储
func (s *Store) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closing, 0, 1) {
		return nil
	}
	s.writeWg.Wait()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("关闭BadgerDB失败: %w", err)
	}
	s.logger.Info("BadgerDB存储已关闭")
	return nil
}

// badgerLogger 将 Badger 内部日志转发到执行器日志
type badgerLogger struct {
	logger log.Logger
}

func newBadgerLogger(logger log.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("[BadgerDB] "+format, args...)
}

// Badger 的 Info 日志过于频繁，降级为 Debug
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

type nopLogger struct{}

func (nopLogger) Debug(string)                   {}
func (nopLogger) Debugf(string, ...interface{})  {}
func (nopLogger) Info(string)                    {}
func (nopLogger) Infof(string, ...interface{})   {}
func (nopLogger) Warn(string)                    {}
func (nopLogger) Warnf(string, ...interface{})   {}
func (nopLogger) Error(string)                   {}
func (nopLogger) Errorf(string, ...interface{})  {}
func (nopLogger) Fatal(string)                   {}
func (nopLogger) Fatalf(string, ...interface{})  {}
func (nopLogger) With(...interface{}) log.Logger { return nopLogger{} }
func (nopLogger) Sync() error                    { return nil }
func (nopLogger) GetZapLogger() *zap.Logger      { return zap.NewNop() }
