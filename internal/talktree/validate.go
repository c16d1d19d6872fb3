package talktree

import (
	"errors"
	"fmt"
)

var (
	ErrNoRoot        = errors.New("tree has no root")
	ErrRootRole      = errors.New("root role must be prompter")
	ErrRoleSequence  = errors.New("child role must be the opposite of its parent")
	ErrEmptyNodeText = errors.New("node text is empty")
)

// Validate checks a tree for the structural invariants every emitted tree
// must hold: a prompter root and strictly alternating roles. Reply text must
// be non-empty; the root may be empty since the section title anchors it.
func Validate(t *ConversationTree) error {
	if t == nil || t.Root == nil {
		return ErrNoRoot
	}
	if t.Root.Role != RolePrompter {
		return fmt.Errorf("%w: got %q", ErrRootRole, t.Root.Role)
	}

	var check func(parent *Node, path string) error
	check = func(parent *Node, path string) error {
		for i, c := range parent.Children {
			p := fmt.Sprintf("%s/%d", path, i)
			if c == nil {
				return fmt.Errorf("%s: nil child", p)
			}
			if c.Role != parent.Role.Opposite() {
				return fmt.Errorf("%s: %w: parent %q, child %q", p, ErrRoleSequence, parent.Role, c.Role)
			}
			if c.Text == "" {
				return fmt.Errorf("%s: %w", p, ErrEmptyNodeText)
			}
			if err := check(c, p); err != nil {
				return err
			}
		}
		return nil
	}
	return check(t.Root, "root")
}
