package ui

import (
	"fmt"
	"sort"
	"strings"
)

// Action is what a key press does in the picker.
type Action string

const (
	ActionNone        Action = ""
	ActionUp          Action = "up"
	ActionDown        Action = "down"
	ActionPageUp      Action = "page_up"
	ActionPageDown    Action = "page_down"
	ActionTop         Action = "top"
	ActionBottom      Action = "bottom"
	ActionToggle      Action = "toggle"
	ActionClick       Action = "click"
	ActionExtendUp    Action = "extend_up"
	ActionExtendDown  Action = "extend_down"
	ActionClear       Action = "clear"
	ActionSearch      Action = "search"
	ActionClearSearch Action = "clear_search"
	ActionConfirm     Action = "confirm"
	ActionCancel      Action = "cancel"
)

// KeyBindings maps key strings, as reported by tea.KeyPressMsg.String, to
// actions.
type KeyBindings map[string]Action

// DefaultKeyBindings returns a fresh copy of the default bindings.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		"up":         ActionUp,
		"k":          ActionUp,
		"down":       ActionDown,
		"j":          ActionDown,
		"pgup":       ActionPageUp,
		"pgdown":     ActionPageDown,
		"home":       ActionTop,
		"g":          ActionTop,
		"end":        ActionBottom,
		"G":          ActionBottom,
		"space":      ActionToggle,
		"v":          ActionClick,
		"shift+up":   ActionExtendUp,
		"K":          ActionExtendUp,
		"shift+down": ActionExtendDown,
		"J":          ActionExtendDown,
		"c":          ActionClear,
		"/":          ActionSearch,
		"esc":        ActionClearSearch,
		"enter":      ActionConfirm,
		"q":          ActionCancel,
		"ctrl+c":     ActionCancel,
	}
}

var knownActions = map[Action]bool{
	ActionUp: true, ActionDown: true, ActionPageUp: true, ActionPageDown: true,
	ActionTop: true, ActionBottom: true, ActionToggle: true, ActionClick: true,
	ActionExtendUp: true, ActionExtendDown: true, ActionClear: true,
	ActionSearch: true, ActionClearSearch: true, ActionConfirm: true, ActionCancel: true,
}

// Bind maps key to the named action, replacing any earlier binding of key.
func (kb KeyBindings) Bind(key, action string) error {
	a := Action(strings.TrimSpace(action))
	if !knownActions[a] {
		return fmt.Errorf("unknown key action %q", action)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty key for action %q", action)
	}
	kb[key] = a
	return nil
}

// Lookup returns the action bound to key.
func (kb KeyBindings) Lookup(key string) Action {
	return kb[key]
}

// KeysFor returns the keys bound to action in sorted order.
func (kb KeyBindings) KeysFor(action Action) []string {
	var keys []string
	for k, a := range kb {
		if a == action {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
