package qdispatch

import "time"

type Config struct {
	SchedulingTimeout time.Duration

	// UseAdaptiveScaler swaps the pool's plain Scaler for an
	// AdaptiveScalerRegulator, folding scaling into the regulator chain
	// instead of running it as a separate evaluate() tick.
	UseAdaptiveScaler bool
	AdaptiveScaler    *ScalerConfig
}

func NewConfig() *Config {
	return &Config{
		SchedulingTimeout: 10 * time.Second,
	}
}
