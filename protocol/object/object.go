// Package object defines the Git object types exchanged during a fetch:
// commits, trees, blobs, tags, and the two delta encodings pack files use to
// reference a base object (spec.md §3 "Object", §4.4 entry header).
//
// Git stores all repository content as one of these typed objects; a
// Packfile entry's header carries the type as a 3-bit value, which is what
// Type's numeric assignment mirrors.
//
// See:
//   - https://git-scm.com/book/en/v2/Git-Internals-Git-Objects
//   - https://git-scm.com/docs/pack-format#_object_types
package object

import "fmt"

// Type is a Git object type, encoded the same way a pack entry header
// encodes it: a 3-bit value, 0 and 5 unused.
type Type uint8

const (
	TypeInvalid  Type = iota // 0b000 - unused
	TypeCommit               // 0b001
	TypeTree                 // 0b010
	TypeBlob                 // 0b011
	TypeTag                  // 0b100
	TypeReserved             // 0b101 - reserved by the pack format, unused
	TypeOfsDelta             // 0b110 - delta, base given by offset
	TypeRefDelta             // 0b111 - delta, base given by hash
)

var typeNames = map[Type]string{
	TypeInvalid:  "OBJ_INVALID",
	TypeCommit:   "OBJ_COMMIT",
	TypeTree:     "OBJ_TREE",
	TypeBlob:     "OBJ_BLOB",
	TypeTag:      "OBJ_TAG",
	TypeReserved: "OBJ_RESERVED",
	TypeOfsDelta: "OBJ_OFS_DELTA",
	TypeRefDelta: "OBJ_REF_DELTA",
}

// String renders the type the way Git's own debug output does
// ("OBJ_COMMIT", "OBJ_TREE", ...).
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("object.Type(%d)", uint8(t))
}

var typeTags = map[Type]string{
	TypeCommit:   "commit",
	TypeTree:     "tree",
	TypeBlob:     "blob",
	TypeTag:      "tag",
	TypeOfsDelta: "ofs-delta",
	TypeRefDelta: "ref-delta",
}

// Bytes returns the tag Git writes in a loose object header for this type
// ("commit", "tree", "blob", "tag"), or for the two delta kinds their
// pack-format name. Types with no on-wire tag report "unknown".
//
// See https://git-scm.com/book/en/v2/Git-Internals-Git-Objects#_object_storage
func (t Type) Bytes() []byte {
	if tag, ok := typeTags[t]; ok {
		return []byte(tag)
	}
	return []byte("unknown")
}
