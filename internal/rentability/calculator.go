package rentability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Calculator computes project and category rentability views. All methods
// are pure functions over their inputs; zero denominators yield zero ratios
// and no method returns an error.
type Calculator struct {
	metrics *MetricsRecorder
	logger  zerolog.Logger
}

// NewCalculator creates a rentability calculator.
func NewCalculator() *Calculator {
	return &Calculator{
		metrics: NewMetricsRecorder(),
		logger:  log.With().Str("component", "rentability").Logger(),
	}
}
