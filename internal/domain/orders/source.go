package orders

import "context"

// Source streams the full record set of one source collection.
// Every onSnapshot call carries the complete current set, never a diff.
type Source interface {
	Tag() SourceTag
	Subscribe(ctx context.Context, onSnapshot func([]Record), onError func(error)) (Subscription, error)
}

// Subscription is an open source stream
type Subscription interface {
	// Close stops the stream; no callback fires after it returns
	Close() error
}
