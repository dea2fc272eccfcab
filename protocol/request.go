package protocol

import (
	"fmt"
	"strings"

	"github.com/anni-dev/anni-fetch/protocol/hash"
)

// SentinelKind is the set of sentinel packets a caller may emit explicitly
// via RequestBuilder.Packet.
type SentinelKind int

const (
	// SentinelFlush emits a Flush packet (length 0000).
	SentinelFlush SentinelKind = iota
	// SentinelDelim emits a Delim packet (length 0001).
	SentinelDelim
)

// RequestBuilder composes a protocol-v2 command body (spec.md §4.2): a
// sequence of pkt-lines, terminated by a flush, sent as the POST body of a
// git-upload-pack request.
//
// Every command body begins with two pre-written capabilities:
// "object-format=sha1" and "agent=<client-agent-string>".
type RequestBuilder struct {
	autoPacket    bool
	packs         []Pack
	argumentsSeen bool
	flushEmitted  bool
}

// NewRequestBuilder returns a RequestBuilder with the mandatory
// object-format and agent capabilities already appended. agent is the
// pkt-line agent string, e.g. "git/2.28.0" (sent as "agent=git/2.28.0").
func NewRequestBuilder(agent string, autoPacket bool) *RequestBuilder {
	b := &RequestBuilder{autoPacket: autoPacket}
	b.Capability("object-format", "sha1")
	b.Capability("agent", agent)
	return b
}

// Command appends "command=<name>\n" as a pkt-line.
func (b *RequestBuilder) Command(name string) *RequestBuilder {
	b.packs = append(b.packs, PackLine(fmt.Sprintf("command=%s\n", name)))
	return b
}

// Capability appends "name=v1 v2 ...\n", or just "name\n" if values is empty,
// as a pkt-line.
func (b *RequestBuilder) Capability(name string, values ...string) *RequestBuilder {
	if len(values) == 0 {
		b.packs = append(b.packs, PackLine(name+"\n"))
		return b
	}
	b.packs = append(b.packs, PackLine(fmt.Sprintf("%s=%s\n", name, strings.Join(values, " "))))
	return b
}

// Argument appends text as a pkt-line. On the first call, if auto_packet is
// on, a Delim packet is emitted first to separate the capability section
// from the argument section.
func (b *RequestBuilder) Argument(text string) *RequestBuilder {
	if !b.argumentsSeen {
		b.argumentsSeen = true
		if b.autoPacket {
			b.packs = append(b.packs, DelimeterPacket)
		}
	}
	b.packs = append(b.packs, PackLine(text+"\n"))
	return b
}

// Want is shorthand for Argument("want " + hash).
func (b *RequestBuilder) Want(h hash.Hash) *RequestBuilder {
	return b.Argument("want " + h.String())
}

// Have is shorthand for Argument("have " + hash).
func (b *RequestBuilder) Have(h hash.Hash) *RequestBuilder {
	return b.Argument("have " + h.String())
}

// Packet emits a Flush or Delim sentinel explicitly.
func (b *RequestBuilder) Packet(kind SentinelKind) *RequestBuilder {
	switch kind {
	case SentinelFlush:
		b.packs = append(b.packs, FlushPacket)
		b.flushEmitted = true
	case SentinelDelim:
		b.packs = append(b.packs, DelimeterPacket)
	}
	return b
}

// Build returns the composed command body. If auto_packet is on and no
// Flush has been emitted yet, one is appended first.
func (b *RequestBuilder) Build() ([]byte, error) {
	if b.autoPacket && !b.flushEmitted {
		b.packs = append(b.packs, FlushPacket)
		b.flushEmitted = true
	}
	return FormatPacks(b.packs...)
}
