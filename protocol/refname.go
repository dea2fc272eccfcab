package protocol

import (
	"errors"
	"strings"
)

// RefName is a parsed Git reference name: the raw string plus the two
// pieces callers usually care about (spec.md's ls-refs/fetch commands key
// refs by category, e.g. listing only "heads").
type RefName struct {
	// FullName is the entire refname as advertised on the wire, including
	// the "refs/" prefix. HEAD is the one exception: it has no prefix.
	FullName string
	// Category is the path segment immediately after "refs/", e.g. "heads"
	// or "tags". For HEAD, Category is "HEAD".
	Category string
	// Location is everything after Category, e.g. "main" or
	// "feature/test". For HEAD this is "HEAD" too; check FullName, not
	// Location, to test for HEAD.
	Location string
}

// HEAD is the one refname that is always valid without a "refs/" prefix.
var HEAD = RefName{
	FullName: "HEAD",
	Category: "HEAD",
	Location: "HEAD",
}

// ParseRefName validates and splits a Git reference name per
// git-check-ref-format(1):
//
//   - HEAD is always valid and returned as the HEAD constant.
//   - Every other name must start with "refs/" and contain at least one
//     more slash, splitting into a category and a location.
//   - No path component may be empty, start with '.', end with ".lock", or
//     equal "@".
//   - The name as a whole may not contain "..", "//", "@{", a trailing
//     '.', or any of the bytes Git forbids in ref names (control bytes,
//     DEL, space, '~', '^', ':', '?', '*', '[', '\\').
//
// See https://git-scm.com/docs/git-check-ref-format
func ParseRefName(in string) (RefName, error) {
	if in == "HEAD" {
		return HEAD, nil
	}

	rn := RefName{FullName: in}
	rest, ok := strings.CutPrefix(in, "refs/")
	if !ok {
		return rn, errors.New("ref name does not include refs/ prefix")
	}

	sepIdx := strings.IndexRune(rest, '/')
	if sepIdx == -1 {
		return rn, errors.New("ref name does not include a category")
	}

	if err := validateRefBody(rest); err != nil {
		return rn, err
	}

	rn.Category = rest[:sepIdx]
	rn.Location = rest[sepIdx+1:]
	return rn, nil
}

// validateRefBody checks the whole-name and per-component rules that apply
// to everything after the "refs/" prefix.
func validateRefBody(body string) error {
	switch {
	case strings.Contains(body, ".."):
		return errors.New("ref cannot have two consecutive dots `..` anywhere")
	case strings.Contains(body, "//"):
		return errors.New("ref cannot contain multiple consecutive slashes")
	case strings.Contains(body, "@{"):
		return errors.New("ref cannot contain a sequence `@{`")
	case strings.HasSuffix(body, "."):
		return errors.New("ref cannot end with a dot `.`")
	}

	for _, component := range strings.Split(body, "/") {
		if err := validateRefComponent(component); err != nil {
			return err
		}
	}
	return nil
}

func validateRefComponent(component string) error {
	switch {
	case component == "":
		return errors.New("ref components cannot be empty")
	case component == "@":
		return errors.New("ref components cannot be the single character `@`")
	case strings.HasPrefix(component, "."):
		return errors.New("ref components cannot begin with a dot `.` or end with the sequence .lock")
	case strings.HasSuffix(component, ".lock"):
		return errors.New("ref components cannot end with the sequence `.lock`")
	}

	hasInvalidRunes := strings.ContainsFunc(component, func(r rune) bool {
		return r < 0o040 || r == 0o177 || r == ' ' || r == '~' || r == '^' || r == ':' || r == '?' || r == '*' || r == '[' || r == '\\'
	})
	if hasInvalidRunes {
		return errors.New("ref components cannot contain control characters, spaces, `~`, `^`, `:`, `?`, `*`, `[`, `DEL`, or a backslash")
	}
	return nil
}
