package parser

import (
	"errors"
	"fmt"

	"github.com/dgallion1/talkgest/internal/talktree"
)

// DefaultMaxDepth bounds reply nesting. Real talk pages rarely go past a
// dozen levels; anything deeper is treated as a broken section.
const DefaultMaxDepth = 64

var ErrNestingTooDeep = errors.New("reply nesting too deep")

// ReplyBuilder turns reply fragments into conversation nodes.
type ReplyBuilder struct {
	MaxDepth int    // 0 means DefaultMaxDepth
	Stats    *Stats // Optional; reply outcomes are counted here
}

// BuildReply builds the node for frag as a reply to a parent with
// parentRole, using the default depth limit.
func BuildReply(parentRole talktree.Role, frag *Fragment, depth int) (*talktree.Node, error) {
	var b ReplyBuilder
	return b.Build(parentRole, frag, depth)
}

// Build returns the node for frag and its sub-replies, or nil when the
// fragment is excluded: its marker count does not match depth, its text is
// blank after cleaning, or its signature has neither author nor timestamp.
// An excluded fragment takes its whole subtree with it.
func (b *ReplyBuilder) Build(parentRole talktree.Role, frag *Fragment, depth int) (*talktree.Node, error) {
	if frag == nil || leadingMarkers(frag.Text) != depth {
		b.count(func(s *Stats) { s.RepliesMalformed++ })
		return nil, nil
	}
	maxDepth := b.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds %d", ErrNestingTooDeep, depth, maxDepth)
	}

	text := Clean(frag.Text)
	if text == "" {
		b.count(func(s *Stats) { s.RepliesBlank++ })
		return nil, nil
	}
	meta := ExtractMetadata(frag.Text)
	if meta.Unresolved() {
		b.count(func(s *Stats) { s.RepliesDropped++ })
		return nil, nil
	}

	node := &talktree.Node{
		Text:     text,
		Role:     parentRole.Opposite(),
		Children: []*talktree.Node{},
		Metadata: meta,
	}
	b.count(func(s *Stats) { s.RepliesKept++ })

	for _, sub := range frag.Replies {
		child, err := b.Build(node.Role, sub, depth+1)
		if err != nil {
			return nil, err
		}
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node, nil
}

func (b *ReplyBuilder) count(fn func(*Stats)) {
	if b.Stats != nil {
		fn(b.Stats)
	}
}
