package protocol

import (
	"fmt"
	"strings"
)

// RefLine is one advertised reference returned by an ls-refs response.
//
// Wire format (per https://git-scm.com/docs/protocol-v2#_ls_refs):
//
//	<oid> SP <refname> *(SP <ref-attribute>)
//
// Known ref-attributes this parser understands: "peeled:<oid>" (present when
// the ls-refs request included "peel" and refname points at an annotated
// tag) and the bare token "symref-target:<target>" (present when the request
// included "symrefs" and refname is a symbolic ref).
type RefLine struct {
	Hash         string
	RefName      string
	Peeled       string
	SymrefTarget string
}

// ParseRefLine parses a single ls-refs response payload (with any leading
// pkt-line length prefix already stripped) into a RefLine.
//
// The canonical ref-listing result described by the ls-refs wire format
// requires the oid to be exactly 40 lowercase-hex characters; any other oid
// is ErrInvalidRefHash. A line with fewer than two fields is a malformed
// frame.
func ParseRefLine(payload []byte) (RefLine, error) {
	line := strings.TrimSuffix(string(payload), "\n")
	if line == "" {
		return RefLine{}, nil
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return RefLine{}, &MalformedFrameError{Payload: payload, Reason: "ls-refs line has fewer than 2 fields"}
	}

	hash := fields[0]
	if len(hash) != 40 || !isLowerHex(hash) {
		return RefLine{}, ErrInvalidRefHash
	}

	ref := RefLine{
		Hash:    hash,
		RefName: fields[1],
	}

	for _, attr := range fields[2:] {
		switch {
		case strings.HasPrefix(attr, "peeled:"):
			ref.Peeled = strings.TrimPrefix(attr, "peeled:")
		case strings.HasPrefix(attr, "symref-target:"):
			ref.SymrefTarget = strings.TrimPrefix(attr, "symref-target:")
		}
	}

	return ref, nil
}

func isLowerHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// String renders the RefLine back into its canonical "<oid> <refname>" form,
// useful for logging.
func (r RefLine) String() string {
	return fmt.Sprintf("%s %s", r.Hash, r.RefName)
}
