package memory

import "time"

const (
	defaultEnabled     = true
	defaultMaxMemoryMB = 64
	defaultShards      = 64

	// defaultLifeWindow 状态条目在执行期间会被反复读取，保留10分钟
	defaultLifeWindow  = 10 * time.Minute
	defaultCleanWindow = time.Minute

	defaultMaxEntrySize = 256
	defaultMaxEntries   = 10000
)
