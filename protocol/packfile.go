package protocol

import (
	"bytes"
	"crypto"
	"crypto/sha1" //nolint:gosec // Git object/pack identity is defined as SHA-1.
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/anni-dev/anni-fetch/protocol/hash"
	"github.com/anni-dev/anni-fetch/protocol/object"
)

// packSignature is the literal 4-byte token every PACK file begins with.
var packSignature = [4]byte{'P', 'A', 'C', 'K'}

var (
	// ErrNoPackfileSignature is returned when the input does not begin with
	// the literal bytes "PACK".
	ErrNoPackfileSignature = errors.New("packfile: missing PACK signature")

	// ErrUnsupportedPackfileVersion is returned for a pack version other
	// than 2 or 3.
	ErrUnsupportedPackfileVersion = errors.New("packfile: unsupported version")
)

// INPUT_CAP / OUTPUT_CAP size the inflater's working buffers (spec.md §5).
// klauspost/compress/zlib reads directly from the seekable *bytes.Reader
// source via its io.ByteReader fast path, so unlike a block-buffered C zlib
// binding it never reads past the end of an object's compressed stream;
// outputCap sizes the drain buffer used to confirm a stream has nothing
// left to give, keeping the same resource policy the spec describes
// without needing manual rewind bookkeeping (see DESIGN.md).
const (
	outputCap = 16 * 1024
)

// PackfileObject is one decoded entry of a Packfile (spec.md §3 "Object").
type PackfileObject struct {
	Type             object.Type
	Hash             hash.Hash
	Data             []byte
	CompressedLength uint64
	Offset           uint64

	// DeltaOffset is valid when Type == object.TypeOfsDelta: the negative
	// byte distance, relative to Offset, of the delta's base object.
	DeltaOffset uint64

	// DeltaBase is valid when Type == object.TypeRefDelta: the 20-byte hash
	// of the delta's base object.
	DeltaBase hash.Hash
}

// PackfileTrailer is the pack's trailing checksum record, returned once
// ReadObject has exhausted the declared object count.
type PackfileTrailer struct {
	Checksum hash.Hash
}

// PackfileEntry is returned by Packfile.ReadObject: exactly one of Object or
// Trailer is non-nil.
type PackfileEntry struct {
	Object  *PackfileObject
	Trailer *PackfileTrailer
}

// Packfile is a streaming, pull-based reader over a PACK byte stream
// (spec.md §4.4). It is constructed with the entire pack buffered in
// memory (see DESIGN.md for why the decoder seeks over a *bytes.Reader
// rather than an arbitrary io.Reader) and yields one PackfileEntry per call
// to ReadObject, in on-wire order, ending with exactly one trailer entry.
type Packfile struct {
	reader      *bytes.Reader
	data        []byte
	version     uint32
	objectCount uint32
	read        uint32
	offset      uint64
	done        bool

	Objects map[string]*PackfileObject
	Offsets map[uint64]hash.Hash
}

// ParsePackfile validates the 12-byte PACK header (signature, version,
// object count) and returns a Packfile positioned to read the first object
// entry. It does not read any object data.
func ParsePackfile(payload []byte) (*Packfile, error) {
	if len(payload) < 12 {
		return nil, ErrNoPackfileSignature
	}

	var sig [4]byte
	copy(sig[:], payload[:4])
	if sig != packSignature {
		return nil, ErrNoPackfileSignature
	}

	version := binary.BigEndian.Uint32(payload[4:8])
	if version != 2 && version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPackfileVersion, version)
	}

	count := binary.BigEndian.Uint32(payload[8:12])

	reader := bytes.NewReader(payload)
	if _, err := reader.Seek(12, io.SeekStart); err != nil {
		return nil, err
	}

	return &Packfile{
		reader:      reader,
		data:        payload,
		version:     version,
		objectCount: count,
		offset:      12,
		Objects:     make(map[string]*PackfileObject, count),
		Offsets:     make(map[uint64]hash.Hash, count),
	}, nil
}

// Version returns the pack's declared format version (2 or 3).
func (p *Packfile) Version() uint32 { return p.version }

// ObjectCount returns the pack's declared object count.
func (p *Packfile) ObjectCount() uint32 { return p.objectCount }

// ReadObject decodes and returns the next entry in the pack: an object entry
// for each of the declared object_count entries, then exactly one trailer
// entry, then io.EOF on every subsequent call.
func (p *Packfile) ReadObject() (PackfileEntry, error) {
	if p.done {
		return PackfileEntry{}, io.EOF
	}

	if p.read >= p.objectCount {
		trailer, err := p.readTrailer()
		if err != nil {
			return PackfileEntry{}, err
		}
		p.done = true
		return PackfileEntry{Trailer: trailer}, nil
	}

	obj, err := p.readObjectEntry()
	if err != nil {
		return PackfileEntry{}, err
	}
	p.read++

	return PackfileEntry{Object: obj}, nil
}

// readObjectEntry decodes one object entry header, OfsDelta/RefDelta suffix,
// and zlib-compressed payload, per spec.md §4.4.
func (p *Packfile) readObjectEntry() (*PackfileObject, error) {
	startOffset := p.offset

	kind, size, headerLen, err := p.readEntryHeader()
	if err != nil {
		return nil, err
	}

	obj := &PackfileObject{
		Type:   kind,
		Offset: startOffset,
	}
	suffixLen := uint64(0)

	switch kind {
	case object.TypeOfsDelta:
		distance, n, err := p.readOfsDeltaSuffix()
		if err != nil {
			return nil, err
		}
		obj.DeltaOffset = distance
		suffixLen = n
	case object.TypeRefDelta:
		base := make([]byte, 20)
		if _, err := io.ReadFull(p.reader, base); err != nil {
			return nil, eofIsUnexpected(err)
		}
		obj.DeltaBase = hash.Hash(base)
		suffixLen = 20
	}

	data, compressedLength, err := p.inflateObject(size)
	if err != nil {
		return nil, err
	}
	obj.Data = data
	obj.CompressedLength = compressedLength

	switch kind {
	case object.TypeCommit, object.TypeTree, object.TypeBlob, object.TypeTag:
		h, err := hash.Object(crypto.SHA1, kind, data)
		if err != nil {
			return nil, err
		}
		obj.Hash = h
		p.Objects[h.String()] = obj
		p.Offsets[obj.Offset] = h
	default:
		// Delta objects: the Git hash is undefined at this level (spec.md
		// §9 "Delta resolution intentionally deferred"). Objects are keyed
		// by their in-pack offset instead, and Offsets records the zero
		// hash to mark the entry as present-but-unverified.
		p.Objects[fmt.Sprintf("offset:%d", obj.Offset)] = obj
		p.Offsets[obj.Offset] = hash.Zero
	}

	objectSize := uint64(headerLen) + suffixLen + compressedLength
	p.offset = startOffset + objectSize

	return obj, nil
}

// readEntryHeader decodes the variable-length (kind, size) header described
// in spec.md §4.4: a continuation-bit byte stream where the first byte
// carries a 3-bit kind and a 4-bit size nibble, and subsequent bytes each
// contribute 7 more size bits, with shifts starting at 4 and increasing by 7.
func (p *Packfile) readEntryHeader() (object.Type, uint64, int, error) {
	first, err := p.reader.ReadByte()
	if err != nil {
		return 0, 0, 0, eofIsUnexpected(err)
	}
	p.offset++

	kindCode := (first >> 4) & 0x07
	size := uint64(first & 0x0F)
	consumed := 1
	shift := uint(4)
	cont := first&0x80 != 0

	for cont {
		b, err := p.reader.ReadByte()
		if err != nil {
			return 0, 0, 0, eofIsUnexpected(err)
		}
		p.offset++
		consumed++
		cont = b&0x80 != 0
		size |= uint64(b&0x7F) << shift
		shift += 7
	}

	kind := object.Type(kindCode)
	switch kind {
	case object.TypeCommit, object.TypeTree, object.TypeBlob, object.TypeTag, object.TypeOfsDelta, object.TypeRefDelta:
	default:
		return 0, 0, 0, fmt.Errorf("%w: %d", ErrInvalidObjectType, kindCode)
	}

	return kind, size, consumed, nil
}

// readOfsDeltaSuffix decodes the OfsDelta negative-offset varint (spec.md
// §4.4), distinct in encoding from the entry header varint.
func (p *Packfile) readOfsDeltaSuffix() (distance uint64, consumed uint64, err error) {
	first, err := p.reader.ReadByte()
	if err != nil {
		return 0, 0, eofIsUnexpected(err)
	}
	p.offset++
	consumed = 1

	distance = uint64(first & 0x7F)
	cont := first&0x80 != 0

	for cont {
		b, err := p.reader.ReadByte()
		if err != nil {
			return 0, 0, eofIsUnexpected(err)
		}
		p.offset++
		consumed++
		cont = b&0x80 != 0
		distance = (distance+1)<<7 | uint64(b&0x7F)
	}

	return distance, consumed, nil
}

// inflateObject decompresses the zlib stream beginning at the reader's
// current position, returning exactly decompressedSize bytes of payload and
// the number of compressed bytes consumed.
//
// bytes.Reader implements io.ByteReader, so the zlib/flate reader built on
// top of it reads one byte at a time near the end of the deflate stream and
// stops exactly where the stream ends: the source's position afterwards is
// already the byte position of the next object's header, with no overshoot
// to rewind. This is the idiomatic Go realization of the state machine in
// spec.md §4.4 (S0 → INFLATE → {NeedsMoreInput, HasMoreOutput, Done}): the
// standard decompressor performs that loop internally, and we observe only
// its two externally visible outcomes, Done (success) or an error (fatal).
func (p *Packfile) inflateObject(decompressedSize uint64) ([]byte, uint64, error) {
	before := p.position()

	zr, err := zlib.NewReader(p.reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidInflateStatus, err)
	}

	data := make([]byte, decompressedSize)
	n, err := io.ReadFull(zr, data)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidInflateStatus, err)
	}
	if uint64(n) != decompressedSize {
		return nil, 0, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidObject, n, decompressedSize)
	}

	// Drain: confirm the deflate stream has nothing left to give. Any
	// further byte would mean the object's declared size disagreed with
	// its actual decompressed content.
	var extra [outputCap]byte
	m, err := zr.Read(extra[:])
	if m > 0 || (err != nil && !errors.Is(err, io.EOF)) {
		return nil, 0, fmt.Errorf("%w: decompressed data exceeds declared size", ErrInvalidObject)
	}

	if err := zr.Close(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidInflateStatus, err)
	}

	after := p.position()
	return data, uint64(after - before), nil
}

func (p *Packfile) position() int64 {
	pos, _ := p.reader.Seek(0, io.SeekCurrent)
	return pos
}

// readTrailer hashes every byte of the in-memory pack before the current
// offset and compares it against the trailing 20-byte checksum.
func (p *Packfile) readTrailer() (*PackfileTrailer, error) {
	declared := make([]byte, 20)
	if _, err := io.ReadFull(p.reader, declared); err != nil {
		return nil, eofIsUnexpected(err)
	}

	h := sha1.New() //nolint:gosec // Git pack checksums are defined as SHA-1.
	if _, err := h.Write(p.data[:p.offset]); err != nil {
		return nil, err
	}
	computed := h.Sum(nil)

	if !bytes.Equal(computed, declared) {
		return nil, fmt.Errorf("%w: computed %x, declared %x", ErrInvalidChecksum, computed, declared)
	}

	return &PackfileTrailer{Checksum: hash.Hash(declared)}, nil
}
