package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultFeeCacheTTL     = 10 * time.Minute
	DefaultRequestTimeout  = 3 * time.Second
	DefaultPricePoll       = 10 * time.Second
)
