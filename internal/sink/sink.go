// Package sink persists conversation trees produced by the parser.
package sink

import (
	"context"
	"fmt"

	"github.com/dgallion1/talkgest/internal/talktree"
)

// Sink receives the trees parsed from one page at a time. Implementations
// must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, page string, trees []talktree.ConversationTree) error
	Close() error
}

// Kind names a sink implementation selectable from configuration.
type Kind string

const (
	KindJSONL  Kind = "jsonl"
	KindSQLite Kind = "sqlite"
)

// ParseKind validates a sink name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindJSONL, KindSQLite:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown sink %q (want jsonl or sqlite)", s)
	}
}

// Record is one persisted tree together with the page it came from.
type Record struct {
	Page string                    `json:"page"`
	Tree talktree.ConversationTree `json:"tree"`
}

func validateAll(page string, trees []talktree.ConversationTree) error {
	for i := range trees {
		if err := talktree.Validate(&trees[i]); err != nil {
			return fmt.Errorf("page %q tree %d: %w", page, i, err)
		}
	}
	return nil
}

// NopCloser wraps a shared sink so that per-job Close calls leave it open.
func NopCloser(s Sink) Sink { return nopCloser{s} }

type nopCloser struct{ Sink }

func (nopCloser) Close() error { return nil }
