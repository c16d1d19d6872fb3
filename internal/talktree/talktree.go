package talktree

import "time"

// Role is the conversational role of a node. Roles alternate down every
// reply chain, starting with RolePrompter at the root.
type Role string

const (
	RolePrompter  Role = "prompter"
	RoleAssistant Role = "assistant"
)

// Opposite returns the role a direct reply to r takes.
func (r Role) Opposite() Role {
	if r == RolePrompter {
		return RoleAssistant
	}
	return RolePrompter
}

// NodeMetadata is the signature attached to a comment. Either field may be
// missing; an empty Author or nil Timestamp means the value was not found.
type NodeMetadata struct {
	Author    string     `json:"author,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// HasAuthor reports whether an author was resolved.
func (m NodeMetadata) HasAuthor() bool { return m.Author != "" }

// HasTimestamp reports whether a timestamp was resolved.
func (m NodeMetadata) HasTimestamp() bool { return m.Timestamp != nil }

// Unresolved is true when neither author nor timestamp could be found.
func (m NodeMetadata) Unresolved() bool { return !m.HasAuthor() && !m.HasTimestamp() }

// Node is one utterance in a conversation.
type Node struct {
	Text     string       `json:"text"`
	Role     Role         `json:"role"`
	Children []*Node      `json:"children"`
	Metadata NodeMetadata `json:"metadata"`
}

// TreeMetadata describes the discussion a tree came from.
type TreeMetadata struct {
	Title string `json:"title"`           // Section header, delimiters trimmed
	Topic string `json:"topic,omitempty"` // Page title, when known
}

// ConversationTree is one discussion section turned into a dialogue tree.
type ConversationTree struct {
	Root     *Node        `json:"root"`
	Metadata TreeMetadata `json:"metadata"`
}

// Walk visits every node depth-first in document order. depth is 0 for the root.
// Returning false from fn stops descent into that node's children.
func (t *ConversationTree) Walk(fn func(n *Node, depth int) bool) {
	if t == nil || t.Root == nil {
		return
	}
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(t.Root, 0)
}

// Size returns the number of nodes in the tree.
func (t *ConversationTree) Size() int {
	n := 0
	t.Walk(func(*Node, int) bool {
		n++
		return true
	})
	return n
}
