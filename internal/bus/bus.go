// Package bus provides event bus implementations for Sentinel. Decisions and
// alerts are published here for the external webhook dispatcher; the scoring
// path never blocks on delivery.
package bus

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// New creates a new event bus based on configuration.
// Community tier: in-process channels. Pro tier: NATS.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
