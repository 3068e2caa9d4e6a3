package badger

const (
	defaultPath     = "./data/badger"
	defaultInMemory = false

	// defaultSyncWrites 区块数据要求落盘后才确认
	defaultSyncWrites = true

	// defaultMemTableSize 64MB
	defaultMemTableSize = 64 << 20

	// inMemoryMemTableSize 内存模式下每个实例的内存表 8MB
	inMemoryMemTableSize = 8 << 20
)
