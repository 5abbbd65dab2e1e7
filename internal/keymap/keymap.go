// Package keymap maps a raw key string (e.g. "alt+q", "ctrl+shift+n") to the
// closed CompositorAction enum of spec.md §4.8. Bindings are represented
// with bubbles' key.Binding, so each action still carries its own help text
// and key list; matching itself is a plain string lookup rather than
// bubbletea's tea.KeyMsg dispatch, since this compositor has no TUI event
// loop to route through.
package keymap

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Action is the closed set of compositor-level actions a keybinding can
// trigger.
type Action string

const (
	ActionQuit           Action = "quit"
	ActionSpawnTerminal  Action = "spawn_terminal"
	ActionFocusNext      Action = "focus_next"
	ActionFocusPrev      Action = "focus_prev"
	ActionScrollDown     Action = "scroll_down"
	ActionScrollUp       Action = "scroll_up"
	ActionScrollToTop    Action = "scroll_to_top"
	ActionScrollToBottom Action = "scroll_to_bottom"
	ActionPageDown       Action = "page_down"
	ActionPageUp         Action = "page_up"
	ActionCopy           Action = "copy"
	ActionPaste          Action = "paste"
	ActionFontSizeUp     Action = "font_size_up"
	ActionFontSizeDown   Action = "font_size_down"
)

type bindingDef struct {
	action Action
	keys   []string
	desc   string
}

var defaults = []bindingDef{
	{ActionQuit, []string{"alt+q"}, "quit"},
	{ActionSpawnTerminal, []string{"alt+enter"}, "spawn terminal"},
	{ActionFocusNext, []string{"alt+j"}, "focus next"},
	{ActionFocusPrev, []string{"alt+k"}, "focus previous"},
	{ActionScrollDown, []string{"alt+down"}, "scroll down"},
	{ActionScrollUp, []string{"alt+up"}, "scroll up"},
	{ActionScrollToTop, []string{"alt+home"}, "scroll to top"},
	{ActionScrollToBottom, []string{"alt+end"}, "scroll to bottom"},
	{ActionPageDown, []string{"alt+pgdown"}, "page down"},
	{ActionPageUp, []string{"alt+pgup"}, "page up"},
	{ActionCopy, []string{"alt+c"}, "copy"},
	{ActionPaste, []string{"alt+v"}, "paste"},
	{ActionFontSizeUp, []string{"alt+="}, "increase font size"},
	{ActionFontSizeDown, []string{"alt+-"}, "decrease font size"},
}

// KeyMap maps raw key strings to bindings for every CompositorAction.
type KeyMap map[Action]key.Binding

// New builds a KeyMap from the default bindings, overridden by overrides
// (action name -> key list) where present.
func New(overrides map[string][]string) KeyMap {
	km := make(KeyMap, len(defaults))
	for _, def := range defaults {
		keys := def.keys
		if custom, ok := overrides[string(def.action)]; ok && len(custom) > 0 {
			keys = custom
		}
		km[def.action] = key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(strings.Join(keys, "/"), def.desc),
		)
	}
	return km
}

// Lookup returns the action bound to the given raw key string, if any.
func (km KeyMap) Lookup(rawKey string) (Action, bool) {
	for action, binding := range km {
		for _, k := range binding.Keys() {
			if k == rawKey {
				return action, true
			}
		}
	}
	return "", false
}

// Binding returns the key.Binding for an action, for help display.
func (km KeyMap) Binding(action Action) key.Binding {
	return km[action]
}
