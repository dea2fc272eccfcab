package protocol

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

// MessageKind discriminates the variants of Message.
type MessageKind int

const (
	// MessageNormal carries an ordinary payload that isn't a sentinel and
	// isn't side-band-multiplexed pack traffic.
	MessageNormal MessageKind = iota
	// MessageFlush is the Flush sentinel (length 0000).
	MessageFlush
	// MessageDelim is the Delim sentinel (length 0001).
	MessageDelim
	// MessageResponseEnd is the ResponseEnd sentinel (length 0002).
	MessageResponseEnd
	// MessagePackStart is emitted exactly once, when the side-band pack
	// stream begins.
	MessagePackStart
	// MessagePackData carries side-band channel 1 payload (pack bytes).
	MessagePackData
	// MessagePackProgress carries side-band channel 2 payload (progress text).
	MessagePackProgress
	// MessagePackError carries side-band channel 3 payload (fatal text).
	MessagePackError
)

// packStartMarker is the exact Normal payload that triggers side-band mode
// (spec.md §4.3 step 4).
var packStartMarker = []byte("packfile\n")

// Message is a single decoded frame produced by the ResponseIterator.
type Message struct {
	Kind  MessageKind
	Bytes []byte // valid for MessageNormal, MessagePackData
	Text  string // valid for MessagePackProgress, MessagePackError
}

// ResponseIterator wraps a byte reader carrying a git-upload-pack response
// body and exposes a pull-style sequence of Message (spec.md §4.3).
//
// Its only observable side effect is advancing the underlying reader; it
// does not buffer beyond the current frame.
type ResponseIterator struct {
	reader     io.Reader
	inSideband bool
	done       bool
}

// NewResponseIterator wraps reader for frame-by-frame iteration.
func NewResponseIterator(reader io.Reader) *ResponseIterator {
	return &ResponseIterator{reader: reader}
}

// Next returns the next Message, or io.EOF once the underlying reader is
// exhausted at a frame boundary.
func (it *ResponseIterator) Next() (Message, error) {
	if it.done {
		return Message{}, io.EOF
	}

	payload, length, err := ReadPktLine(it.reader)
	if err != nil {
		if err == io.EOF {
			it.done = true
			return Message{}, io.EOF
		}
		return Message{}, err
	}

	if it.inSideband && length > 4 {
		channel := payload[0]
		rest := payload[1:]
		switch channel {
		case 0x01:
			return Message{Kind: MessagePackData, Bytes: rest}, nil
		case 0x02:
			return Message{Kind: MessagePackProgress, Text: trimUTF8Lossy(rest)}, nil
		case 0x03:
			return Message{Kind: MessagePackError, Text: trimUTF8Lossy(rest)}, nil
		default:
			return Message{}, &MalformedFrameError{Payload: payload, Reason: "unknown side-band channel"}
		}
	}

	if length >= 4 && bytes.Equal(payload, packStartMarker) {
		it.inSideband = true
		return Message{Kind: MessagePackStart}, nil
	}

	switch length {
	case 0:
		return Message{Kind: MessageFlush}, nil
	case 1:
		return Message{Kind: MessageDelim}, nil
	case 2:
		return Message{Kind: MessageResponseEnd}, nil
	default:
		return Message{Kind: MessageNormal, Bytes: payload}, nil
	}
}

// trimUTF8Lossy decodes b as UTF-8, replacing invalid sequences with the
// Unicode replacement character, and trims surrounding whitespace.
func trimUTF8Lossy(b []byte) string {
	if utf8.Valid(b) {
		return strings.TrimSpace(string(b))
	}

	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return strings.TrimSpace(sb.String())
}

// CollectPackBytes drains it, concatenating the payloads of every
// MessagePackData frame, and returns once MessageFlush, MessageResponseEnd,
// or end-of-stream is observed. PackProgress messages are discarded; a
// PackError message ends collection and is returned as a *GitServerError
// alongside the bytes collected so far. Callers that need the messages
// themselves should drive the iterator directly.
func CollectPackBytes(it *ResponseIterator) ([]byte, error) {
	var buf bytes.Buffer
	for {
		msg, err := it.Next()
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}

		switch msg.Kind {
		case MessagePackData:
			buf.Write(msg.Bytes)
		case MessageFlush, MessageResponseEnd:
			return buf.Bytes(), nil
		case MessagePackError:
			return buf.Bytes(), &GitServerError{ErrorType: "fatal", Message: msg.Text}
		}
	}
}
