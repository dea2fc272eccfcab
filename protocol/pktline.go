package protocol

import (
	"fmt"
	"io"
)

// ReadPktLine reads exactly one pkt-line frame from reader (spec.md §4.1).
//
// It reads 4 bytes and interprets them as an ASCII hex length. If fewer than
// 4 bytes are available, the stream has ended: ReadPktLine returns an empty
// payload, length 0, and io.EOF. A length of 0, 1, or 2 is a sentinel frame
// (Flush/Delim/ResponseEnd respectively) and is returned with an empty
// payload and no error. A length of 3, or a length field that is not valid
// hex, is a MalformedFrameError. A length of 4 or more is a regular frame;
// ReadPktLine reads exactly length-4 more bytes and returns them.
func ReadPktLine(reader io.Reader) ([]byte, int, error) {
	var lengthBytes [4]byte
	if _, err := io.ReadFull(reader, lengthBytes[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, 0, io.EOF
		}
		return nil, 0, err
	}

	size, err := parseHexLength(lengthBytes)
	if err != nil {
		return nil, 0, &MalformedFrameError{Payload: lengthBytes[:], Reason: err.Error()}
	}

	if size == 3 {
		return nil, 0, &MalformedFrameError{Payload: lengthBytes[:], Reason: "length 3 is not a valid pkt-line length"}
	}

	if size < 4 {
		return nil, size, nil
	}

	payload := make([]byte, size-4)
	if _, err := io.ReadFull(reader, payload); err != nil {
		return nil, 0, &MalformedFrameError{Payload: lengthBytes[:], Reason: "truncated payload"}
	}

	return payload, size, nil
}

func parseHexLength(b [4]byte) (int, error) {
	var v int
	for _, c := range b {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= int(c - '0')
		case c >= 'a' && c <= 'f':
			v |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= int(c-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex digit %q in pkt-line length", c)
		}
	}
	return v, nil
}

// WritePktLine writes text as a pkt-line with a trailing LF: the 4-hex-digit
// length of len(text)+5 followed by text followed by 0x0A.
func WritePktLine(writer io.Writer, text string) error {
	length := len(text) + 5
	if length-4 > MaxPktLineDataSize {
		return ErrDataTooLarge
	}
	_, err := fmt.Fprintf(writer, "%04x%s\n", length, text)
	return err
}

// WritePktLineNoLF writes text as a pkt-line without a trailing LF: the
// 4-hex-digit length of len(text)+4 followed by text verbatim.
func WritePktLineNoLF(writer io.Writer, text string) error {
	length := len(text) + 4
	if length-4 > MaxPktLineDataSize {
		return ErrDataTooLarge
	}
	_, err := fmt.Fprintf(writer, "%04x%s", length, text)
	return err
}

// WritePacket writes a sentinel pkt-line: the 4-hex-digit encoding of n,
// where n must be 0 (flush), 1 (delim), or 2 (response-end).
func WritePacket(writer io.Writer, n int) error {
	if n != 0 && n != 1 && n != 2 {
		return fmt.Errorf("invalid sentinel packet value %d", n)
	}
	_, err := fmt.Fprintf(writer, "%04x", n)
	return err
}
