// Package source adapts stored raw documents into full-snapshot record streams.
package source

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when no interval is configured
const DefaultPollInterval = 15 * time.Second

// DocumentLister lists every raw document of one source
type DocumentLister interface {
	ListBySource(ctx context.Context, source orders.SourceTag) ([]models.SourceDocumentModel, error)
}

// PollingSource polls the documents of one source and delivers the whole set
// whenever its content changed since the last delivery
type PollingSource struct {
	tag      orders.SourceTag
	lister   DocumentLister
	interval time.Duration
	logger   *zap.Logger
}

// NewPollingSource creates a polling source for tag
func NewPollingSource(tag orders.SourceTag, lister DocumentLister, interval time.Duration, logger *zap.Logger) *PollingSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollingSource{
		tag:      tag,
		lister:   lister,
		interval: interval,
		logger:   logger.With(zap.String("source", string(tag))),
	}
}

// Tag identifies the source
func (s *PollingSource) Tag() orders.SourceTag {
	return s.tag
}

// Subscribe polls immediately and then on every interval until the subscription is closed
func (s *PollingSource) Subscribe(ctx context.Context, onSnapshot func([]orders.Record), onError func(error)) (orders.Subscription, error) {
	if onSnapshot == nil {
		return nil, errors.New("onSnapshot callback is required")
	}
	if onError == nil {
		onError = func(error) {}
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &pollSubscription{cancel: cancel}

	sub.wg.Add(1)
	go s.pollLoop(ctx, &sub.wg, onSnapshot, onError)

	s.logger.Debug("Source subscribed", zap.Duration("poll_interval", s.interval))
	return sub, nil
}

func (s *PollingSource) pollLoop(ctx context.Context, wg *sync.WaitGroup, onSnapshot func([]orders.Record), onError func(error)) {
	defer wg.Done()

	var last []byte
	poll := func() {
		records, digest, err := s.load(ctx)
		if err != nil {
			if ctx.Err() == nil {
				onError(err)
			}
			return
		}
		if last != nil && string(last) == string(digest) {
			return
		}
		last = digest
		onSnapshot(records)
	}

	poll()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// load reads the current set and its content digest. Undecodable documents are
// skipped but still change the digest.
func (s *PollingSource) load(ctx context.Context) ([]orders.Record, []byte, error) {
	docs, err := s.lister.ListBySource(ctx, s.tag)
	if err != nil {
		return nil, nil, fmt.Errorf("poll %s: %w", s.tag, err)
	}

	h := sha256.New()
	records := make([]orders.Record, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		h.Write([]byte(doc.DocID))
		h.Write([]byte{0})
		h.Write([]byte(doc.Payload))
		h.Write([]byte{0})

		record, err := doc.ToRecord()
		if err != nil {
			s.logger.Warn("Skipping undecodable document", zap.String("doc_id", doc.DocID), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, h.Sum(nil), nil
}

type pollSubscription struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Close stops polling and waits for an in-flight poll to finish
func (p *pollSubscription) Close() error {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
	return nil
}

var _ orders.Source = (*PollingSource)(nil)
