package api

const (
	defaultEnabled       = true
	defaultListenAddr    = "127.0.0.1:28680"
	defaultEnableMetrics = true
	defaultEnableProduce = true
	defaultGinMode       = "release"
)
