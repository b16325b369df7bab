package source

import (
	"fmt"
	"time"

	"github.com/comedor/backend/internal/domain/orders"
	"go.uber.org/zap"
)

// NewPollingSources builds one polling source per enabled tag. An empty list enables all.
func NewPollingSources(enabled []string, lister DocumentLister, interval time.Duration, logger *zap.Logger) ([]orders.Source, error) {
	tags := orders.AllSourceTags()
	if len(enabled) > 0 {
		tags = tags[:0:0]
		seen := make(map[orders.SourceTag]bool, len(enabled))
		for _, name := range enabled {
			tag := orders.SourceTag(name)
			if !tag.IsValid() {
				return nil, fmt.Errorf("unknown source %q", name)
			}
			if seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	sources := make([]orders.Source, 0, len(tags))
	for _, tag := range tags {
		sources = append(sources, NewPollingSource(tag, lister, interval, logger))
	}
	return sources, nil
}
