// Package keyenc converts a normalized terminal key press into the PTY byte
// sequence a terminal emulator expects, per spec.md §6's "Terminal key
// encoding". Both Wayland and X11 input adapters (out-of-scope collaborators)
// are expected to normalize their native key events into a Key before
// reaching this package, the same split the compositor's two backends
// (Linux/Smithay, macOS) shared in the system this was ported from.
package keyenc

// Kind identifies which terminal key a Key value represents.
type Kind int

const (
	KindStr Kind = iota
	KindChar
	KindEnter
	KindBackspace
	KindTab
	KindEscape
	KindSpace
	KindArrowUp
	KindArrowDown
	KindArrowRight
	KindArrowLeft
	KindHome
	KindEnd
	KindPageUp
	KindPageDown
	KindInsert
	KindDelete
	KindF1
	KindF2
	KindF3
	KindF4
	KindF5
	KindF6
	KindF7
	KindF8
	KindF9
	KindF10
	KindF11
	KindF12
)

// Key is the normalized terminal key representation. Exactly one of Str or
// Char is meaningful, selected by Kind.
type Key struct {
	Kind Kind
	Str  string
	Char rune
}

// Str builds a Key carrying a UTF-8 string (e.g. from an IME composed
// string).
func Str(s string) Key { return Key{Kind: KindStr, Str: s} }

// Char builds a Key carrying a single rune.
func Char(r rune) Key { return Key{Kind: KindChar, Char: r} }

var namedKeys = map[Kind]Key{
	KindEnter:     {Kind: KindEnter},
	KindBackspace: {Kind: KindBackspace},
	KindTab:       {Kind: KindTab},
	KindEscape:    {Kind: KindEscape},
	KindSpace:     {Kind: KindSpace},
}

// Named builds a Key for one of the non-character keys (Enter, arrows,
// function keys, etc).
func Named(kind Kind) Key {
	return Key{Kind: kind}
}

// CtrlCharCode maps a character to its Ctrl+key control code (0x01-0x1F), or
// ok=false if the character has no standard control code.
func CtrlCharCode(c rune) (code byte, ok bool) {
	lower := c
	if c >= 'A' && c <= 'Z' {
		lower = c - 'A' + 'a'
	}
	switch lower {
	case 'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
		'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z':
		return byte(lower-'a') + 1, true
	case '[':
		return 27, true
	case '\\':
		return 28, true
	case ']':
		return 29, true
	case '^':
		return 30, true
	case '_':
		return 31, true
	default:
		return 0, false
	}
}

var escapeSequences = map[Kind][]byte{
	KindArrowUp:    {0x1b, '[', 'A'},
	KindArrowDown:  {0x1b, '[', 'B'},
	KindArrowRight: {0x1b, '[', 'C'},
	KindArrowLeft:  {0x1b, '[', 'D'},
	KindHome:       {0x1b, '[', 'H'},
	KindEnd:        {0x1b, '[', 'F'},
	KindPageUp:     {0x1b, '[', '5', '~'},
	KindPageDown:   {0x1b, '[', '6', '~'},
	KindInsert:     {0x1b, '[', '2', '~'},
	KindDelete:     {0x1b, '[', '3', '~'},
	KindF1:         {0x1b, 'O', 'P'},
	KindF2:         {0x1b, 'O', 'Q'},
	KindF3:         {0x1b, 'O', 'R'},
	KindF4:         {0x1b, 'O', 'S'},
	KindF5:         {0x1b, '[', '1', '5', '~'},
	KindF6:         {0x1b, '[', '1', '7', '~'},
	KindF7:         {0x1b, '[', '1', '8', '~'},
	KindF8:         {0x1b, '[', '1', '9', '~'},
	KindF9:         {0x1b, '[', '2', '0', '~'},
	KindF10:        {0x1b, '[', '2', '1', '~'},
	KindF11:        {0x1b, '[', '2', '3', '~'},
	KindF12:        {0x1b, '[', '2', '4', '~'},
}

// Encode converts key to the byte sequence to write to the PTY. ctrl maps
// letter/symbol keys to control codes; alt prepends ESC (0x1b) to the
// result.
func Encode(key Key, ctrl, alt bool) []byte {
	if ctrl {
		var c rune
		has := false
		switch key.Kind {
		case KindStr:
			for _, r := range key.Str {
				c, has = r, true
				break
			}
		case KindChar:
			c, has = key.Char, true
		}
		if has {
			if code, ok := CtrlCharCode(c); ok {
				if alt {
					return []byte{0x1b, code}
				}
				return []byte{code}
			}
		}
	}

	var result []byte
	switch key.Kind {
	case KindStr:
		result = []byte(key.Str)
	case KindChar:
		result = []byte(string(key.Char))
	case KindEnter:
		result = []byte{'\r'}
	case KindBackspace:
		result = []byte{0x7f}
	case KindTab:
		result = []byte{'\t'}
	case KindEscape:
		result = []byte{0x1b}
	case KindSpace:
		result = []byte{' '}
	default:
		if seq, ok := escapeSequences[key.Kind]; ok {
			result = append([]byte(nil), seq...)
		}
	}

	if alt && len(result) > 0 {
		result = append([]byte{0x1b}, result...)
	}
	return result
}
