package extract

import (
	"context"
	"errors"
	"fmt"
)

// Strategy extracts a Document from raw bytes. The local extractor and the
// remote service client are the two implementations.
type Strategy interface {
	ExtractDocument(ctx context.Context, data []byte) (*Document, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, data []byte) (*Document, error)

// ExtractDocument calls f.
func (f StrategyFunc) ExtractDocument(ctx context.Context, data []byte) (*Document, error) {
	return f(ctx, data)
}

// Prepared returns a Strategy that always yields doc. It lets a document
// that was already extracted serve as the last link of a Chain.
func Prepared(doc *Document) Strategy {
	return StrategyFunc(func(ctx context.Context, _ []byte) (*Document, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// Chain tries each strategy in order and returns the first success.
type Chain struct {
	Strategies []Strategy

	// OnFallback is called with the error of every strategy that failed
	// before a later one was tried.
	OnFallback func(index int, err error)
}

// NewChain returns a Chain over the given strategies.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{Strategies: strategies}
}

// ExtractDocument runs the chain. Context cancellation is never recovered.
// When every strategy fails, the last error is returned.
func (c *Chain) ExtractDocument(ctx context.Context, data []byte) (*Document, error) {
	if len(c.Strategies) == 0 {
		return nil, fmt.Errorf("no extraction strategy configured")
	}

	var lastErr error
	for i, s := range c.Strategies {
		if s == nil {
			continue
		}
		doc, err := s.ExtractDocument(ctx, data)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return nil, err
			}
		}
		lastErr = err
		if i < len(c.Strategies)-1 && c.OnFallback != nil {
			c.OnFallback(i, err)
		}
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no extraction strategy configured")
	}
	return nil, lastErr
}
