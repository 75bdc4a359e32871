package importer

import (
	"errors"
	"fmt"
)

// DefaultBatchSize is the flush threshold when none is configured
const DefaultBatchSize = 1000

// ErrInvalidBatchSize is returned for a batch size below one
var ErrInvalidBatchSize = errors.New("batch size must be a positive integer")

// Config configures the batch accumulator
type Config struct {
	// BatchSize is the number of products of one kind buffered before a flush
	BatchSize int `yaml:"batch_size"`
}

// DefaultConfig returns the default accumulator configuration
func DefaultConfig() Config {
	return Config{BatchSize: DefaultBatchSize}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.BatchSize)
	}
	return nil
}
