package event

// 事件系统默认配置值
const (
	// defaultEnabled 默认启用事件系统
	defaultEnabled = true

	// defaultTransactional 链下工作者按区块顺序处理导入事件
	defaultTransactional = true

	// defaultMaxSubscribers 单主题订阅者上限
	defaultMaxSubscribers = 64
)
