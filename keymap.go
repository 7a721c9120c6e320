package headlessterm

import (
	"strconv"
	"strings"
)

// KeySym names a logical key independent of any particular keyboard layout.
type KeySym int

const (
	KeyNone KeySym = iota
	// KeyRune carries a literal printable character in KeyEvent.Rune.
	KeyRune
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyBackspace
	KeyTab
	KeyEnter
	KeyEscape
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// Modifiers is a bitmask of keyboard modifier keys held during a KeyEvent.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt             // META
	ModCtrl
)

// KeyEvent is a logical key press: a keysym (or literal rune) plus held modifiers.
type KeyEvent struct {
	Key  KeySym
	Rune rune
	Mods Modifiers
}

// FunctionKeyMode selects which escape sequence family function keys encode to.
type FunctionKeyMode int

const (
	FunctionKeyModeLegacy FunctionKeyMode = iota
	FunctionKeyModeVT220
	FunctionKeyModeSun
	FunctionKeyModeHP
)

// WithFunctionKeyMode selects the escape sequence flavor used for function keys.
// Defaults to FunctionKeyModeLegacy.
func WithFunctionKeyMode(mode FunctionKeyMode) Option {
	return func(t *Terminal) {
		t.functionKeyMode = mode
	}
}

// Encode translates a logical key event into the bytes a real terminal would send
// to the PTY, consulting the terminal's current cursor-key/keypad-application modes
// and configured function-key flavor.
func Encode(ev KeyEvent, t *Terminal) []byte {
	if ev.Key == KeyRune || ev.Key == KeyNone {
		return encodeRune(ev)
	}

	if b, ok := encodeArrow(ev, t); ok {
		return b
	}

	if b, ok := encodeEditing(ev); ok {
		return applyMeta(ev.Mods, b)
	}

	if b, ok := encodeFunctionKey(ev, t.functionKeyMode); ok {
		return b
	}

	switch ev.Key {
	case KeyBackspace:
		return applyMeta(ev.Mods, []byte{0x7f})
	case KeyTab:
		return applyMeta(ev.Mods, []byte{'\t'})
	case KeyEnter:
		return applyMeta(ev.Mods, []byte{'\r'})
	case KeyEscape:
		return []byte{0x1b}
	}

	return nil
}

// encodeRune handles a literal character, applying the Ctrl bitmask (&^ 0x60, for
// bytes '?' through 0x7f) and/or the META-prefixes-with-ESC rule.
func encodeRune(ev KeyEvent) []byte {
	r := ev.Rune
	if r == 0 {
		return nil
	}

	if ev.Mods&ModCtrl != 0 {
		b := byte(r)
		if b >= '?' && b < 0x80 {
			b &^= 0x60
			return applyMeta(ev.Mods, []byte{b})
		}
	}

	return applyMeta(ev.Mods, []byte(string(r)))
}

// applyMeta prefixes the output with ESC when META (Alt) is held, matching
// xterm's "meta sends escape" behavior.
func applyMeta(mods Modifiers, b []byte) []byte {
	if mods&ModAlt == 0 || len(b) == 0 {
		return b
	}
	out := make([]byte, 0, len(b)+1)
	out = append(out, 0x1b)
	out = append(out, b...)
	return out
}

// encodeArrow produces ESC [ X (normal) or ESC O X (application cursor-key mode) for
// the four arrow keys.
func encodeArrow(ev KeyEvent, t *Terminal) ([]byte, bool) {
	var final byte
	switch ev.Key {
	case KeyUp:
		final = 'A'
	case KeyDown:
		final = 'B'
	case KeyRight:
		final = 'C'
	case KeyLeft:
		final = 'D'
	default:
		return nil, false
	}

	introducer := byte('[')
	if t != nil && t.HasMode(ModeCursorKeys) {
		introducer = 'O'
	}

	return []byte{0x1b, introducer, final}, true
}

// encodeEditing handles Home/End/Insert/Delete/PageUp/PageDown, which have fixed
// CSI forms regardless of cursor-key mode (ESC [ H and ESC [ F for Home/End,
// tilde-terminated for the rest).
func encodeEditing(ev KeyEvent) ([]byte, bool) {
	var csi string
	switch ev.Key {
	case KeyHome:
		csi = "\x1b[H"
	case KeyEnd:
		csi = "\x1b[F"
	case KeyInsert:
		csi = "\x1b[2~"
	case KeyDelete:
		csi = "\x1b[3~"
	case KeyPageUp:
		csi = "\x1b[5~"
	case KeyPageDown:
		csi = "\x1b[6~"
	default:
		return nil, false
	}
	return []byte(csi), true
}

// encodeFunctionKey produces the F1-F12 escape sequence for the requested flavor.
func encodeFunctionKey(ev KeyEvent, mode FunctionKeyMode) ([]byte, bool) {
	n, ok := functionKeyNumber(ev.Key)
	if !ok {
		return nil, false
	}

	switch mode {
	case FunctionKeyModeVT220, FunctionKeyModeLegacy:
		// F1-F4 are traditionally SS3 letters; F5 and up use CSI ~ codes.
		if n >= 1 && n <= 4 {
			letters := "PQRS"
			return []byte{0x1b, 'O', letters[n-1]}, true
		}
		code := vt220FunctionCode(n)
		if code == 0 {
			return nil, false
		}
		return []byte("\x1b[" + strconv.Itoa(code) + "~"), true
	case FunctionKeyModeSun, FunctionKeyModeHP:
		code := vt220FunctionCode(n)
		if code == 0 {
			return nil, false
		}
		return []byte("\x1b[" + strconv.Itoa(code) + "~"), true
	}

	return nil, false
}

func functionKeyNumber(k KeySym) (int, bool) {
	if k >= KeyF1 && k <= KeyF12 {
		return int(k-KeyF1) + 1, true
	}
	return 0, false
}

// vt220FunctionCode maps F5-F12 to their traditional CSI ~ parameter values.
func vt220FunctionCode(n int) int {
	codes := map[int]int{
		5: 15, 6: 17, 7: 18, 8: 19, 9: 20, 10: 21, 11: 23, 12: 24,
	}
	return codes[n]
}

// EncodePaste wraps text in bracketed-paste markers when the terminal has
// bracketed-paste mode enabled, translating embedded newlines to carriage
// returns to match common shell expectations. When the mode is disabled, the
// text is returned with only the newline translation applied.
func (t *Terminal) EncodePaste(text string) []byte {
	translated := strings.ReplaceAll(text, "\n", "\r")

	if !t.HasMode(ModeBracketedPaste) {
		return []byte(translated)
	}

	var b []byte
	b = append(b, "\x1b[200~"...)
	b = append(b, translated...)
	b = append(b, "\x1b[201~"...)
	return b
}
