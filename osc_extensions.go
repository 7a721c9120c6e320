package headlessterm

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// extractExtendedOSC scans data for OSC 1337 (iTerm2 proprietary) and OSC 99 (desktop
// notification) sequences, which go-ansicode's Handler interface has no hooks for, and
// dispatches them directly. The sequences are stripped from the returned slice so the
// decoder never sees a numeric OSC code it cannot route anywhere.
//
// A sequence split across two separate Write calls is not reassembled here; it is left
// untouched and handed to the decoder, which will simply fail to recognize it.
func (t *Terminal) extractExtendedOSC(data []byte) []byte {
	out := make([]byte, 0, len(data))

	i := 0
	for i < len(data) {
		if data[i] == 0x1b && i+1 < len(data) && data[i+1] == ']' {
			if consumed, handled := t.tryExtendedOSC(data[i:]); handled {
				i += consumed
				continue
			}
		}
		out = append(out, data[i])
		i++
	}

	return out
}

// tryExtendedOSC attempts to parse b as a complete "ESC ] <code> ; <body> <terminator>"
// sequence for a code this package handles itself. It reports how many bytes of b were
// consumed, and whether the sequence was recognized and handled.
func (t *Terminal) tryExtendedOSC(b []byte) (consumed int, handled bool) {
	i := 2 // past ESC ]

	codeStart := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	code := string(b[codeStart:i])
	if code != "1337" && code != "99" {
		return 0, false
	}
	if i >= len(b) || b[i] != ';' {
		return 0, false
	}
	i++
	bodyStart := i

	for j := i; j < len(b); j++ {
		switch {
		case b[j] == 0x07:
			t.dispatchExtendedOSC(code, b[bodyStart:j])
			return j + 1, true
		case b[j] == 0x1b && j+1 < len(b) && b[j+1] == '\\':
			t.dispatchExtendedOSC(code, b[bodyStart:j])
			return j + 2, true
		}
	}

	// Terminator not yet in this chunk.
	return 0, false
}

func (t *Terminal) dispatchExtendedOSC(code string, body []byte) {
	switch code {
	case "1337":
		t.handleOSC1337(body)
	case "99":
		t.handleOSC99(body)
	}
}

const setUserVarPrefix = "SetUserVar="

// handleOSC1337 processes the subset of iTerm2's proprietary OSC 1337 protocol this
// package implements: SetUserVar=NAME=BASE64VALUE. Unrecognized subcommands are ignored.
func (t *Terminal) handleOSC1337(body []byte) {
	s := string(body)
	if !strings.HasPrefix(s, setUserVarPrefix) {
		return
	}

	rest := s[len(setUserVarPrefix):]
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		return
	}

	name := rest[:eq]
	decoded, err := base64.StdEncoding.DecodeString(rest[eq+1:])
	if err != nil {
		return
	}

	t.SetUserVar(name, string(decoded))
}

// handleOSC99 parses a kitty-style desktop notification request: colon-separated
// "key=value" metadata, a semicolon, and the (optionally base64-encoded) payload.
func (t *Terminal) handleOSC99(body []byte) {
	s := string(body)
	metadata, payload := s, ""
	if idx := strings.IndexByte(s, ';'); idx >= 0 {
		metadata, payload = s[:idx], s[idx+1:]
	}

	p := &NotificationPayload{Done: true}
	for _, field := range strings.Split(metadata, ":") {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "i":
			p.ID = val
		case "d":
			p.Done = val == "1"
		case "p":
			p.PayloadType = val
		case "e":
			p.Encoding = val
		case "a":
			if val != "" {
				p.Actions = strings.Split(val, ",")
			}
		case "c":
			p.TrackClose = val == "1"
		case "w":
			if n, err := strconv.Atoi(val); err == nil {
				p.Timeout = n
			}
		case "n":
			p.AppName = val
		case "t":
			p.Type = val
		case "ic":
			p.IconName = val
		case "q":
			p.IconCacheID = val
		case "s":
			p.Sound = val
		case "u":
			if n, err := strconv.Atoi(val); err == nil {
				p.Urgency = n
			}
		case "o":
			p.Occasion = val
		}
	}

	data := []byte(payload)
	if p.Encoding == "1" {
		if decoded, err := base64.StdEncoding.DecodeString(payload); err == nil {
			data = decoded
		}
	}
	p.Data = data

	t.DesktopNotification(p)
}
