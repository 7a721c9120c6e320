package headlessterm

import (
	"fmt"

	"github.com/unilibs/uniwidth"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// CharsetDecoder transcodes a non-UTF-8 byte stream into UTF-8 ahead of the
// ansicode decoder, covering the ISO-2022/national-replacement half of input
// decoding that go-ansicode's own UTF-8 path does not.
type CharsetDecoder struct {
	name string
	dec  *encoding.Decoder
}

// NewCharsetDecoder creates a decoder defaulting to UTF-8 passthrough.
func NewCharsetDecoder() *CharsetDecoder {
	return &CharsetDecoder{name: "utf-8"}
}

// SetCodeset switches the incoming byte encoding, looked up by IANA/MIME name
// (e.g. "iso-8859-1", "windows-1252", "utf-8") via golang.org/x/text/encoding/htmlindex.
// An unrecognized name falls back to UTF-8 and returns a diagnostic error, per this
// package's documented failure policy: encoding changes that fail to open a
// converter never leave the decoder stuck on a broken codeset.
func (c *CharsetDecoder) SetCodeset(name string) error {
	if name == "" || equalFoldASCII(name, "utf-8") {
		c.name = "utf-8"
		c.dec = nil
		return nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		c.name = "utf-8"
		c.dec = nil
		return fmt.Errorf("headlessterm: unknown codeset %q, falling back to utf-8: %w", name, err)
	}

	c.name = name
	c.dec = enc.NewDecoder()
	return nil
}

// Codeset returns the name of the currently active encoding.
func (c *CharsetDecoder) Codeset() string {
	return c.name
}

// Process transcodes b into UTF-8. When the active codeset is already UTF-8, b is
// returned unchanged. Undecodable bytes are replaced (by the underlying x/text
// decoder's own U+FFFD substitution) rather than aborting the stream.
func (c *CharsetDecoder) Process(b []byte) []byte {
	if c.dec == nil {
		return b
	}

	out, err := c.dec.Bytes(b)
	if err != nil {
		return out
	}
	return out
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// SetCodeset switches the terminal's incoming byte encoding. See CharsetDecoder.SetCodeset.
func (t *Terminal) SetCodeset(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.charsetDecoder == nil {
		t.charsetDecoder = NewCharsetDecoder()
	}
	return t.charsetDecoder.SetCodeset(name)
}

// Codeset returns the name of the terminal's currently active input encoding.
func (t *Terminal) Codeset() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.charsetDecoder == nil {
		return "utf-8"
	}
	return t.charsetDecoder.Codeset()
}

// runeWidth returns the display-width hint §4.3 says every decoded code point
// carries: 2 for wide characters (CJK, emoji), 1 for normal, 0 for zero-width
// (combining marks, control chars).
func runeWidth(r rune) int {
	return uniwidth.RuneWidth(r)
}

// isWideRune returns true if the rune occupies 2 columns (CJK ideographs,
// fullwidth forms, emoji).
func isWideRune(r rune) bool {
	return uniwidth.RuneWidth(r) == 2
}

// StringWidth returns the total display width of a string (sum of rune widths).
func StringWidth(s string) int {
	return uniwidth.StringWidth(s)
}
