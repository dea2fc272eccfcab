package protocol

import "strings"

// Acknowledgements holds the "acknowledgments" section of a fetch response.
type Acknowledgements struct {
	Nack bool
	Acks []string
}

// Shallowness distinguishes a shallow boundary from an unshallow one in the
// "shallow-info" section of a fetch response.
type Shallowness int

const (
	// Shallow marks an object as a new shallow boundary.
	Shallow Shallowness = iota
	// Unshallow marks a previously-shallow boundary as removed.
	Unshallow
)

// ShallowInfo is one line of the "shallow-info" section.
type ShallowInfo struct {
	Shallowness Shallowness
	Object      string
}

// WantedRef is one line of the "wanted-refs" section: the oid a requested
// ref resolved to.
type WantedRef struct {
	Object  string
	RefName string
}

// FetchResponse is the fully parsed result of a command=fetch request
// (spec.md §6, §4.3): the acknowledgments/shallow-info/wanted-refs
// sections, plus the decoded packfile once the side-band "packfile" section
// has been drained.
type FetchResponse struct {
	Acks       Acknowledgements
	Shallow    []ShallowInfo
	WantedRefs []WantedRef
	Packfile   *Packfile
}

// ParseFetchResponse drives a ResponseIterator over reader, classifying the
// acknowledgments/shallow-info/wanted-refs sections and collecting the
// side-band pack bytes into a decoded Packfile.
//
// Per spec.md §9's first open question, capability sections other than
// "packfile" are forwarded as Normal messages by the iterator; this parser
// classifies acknowledgments/shallow-info/wanted-refs and skips the lines
// of any other section instead of failing on them.
func ParseFetchResponse(reader interface {
	Read(p []byte) (n int, err error)
}) (*FetchResponse, error) {
	it := NewResponseIterator(reader)
	resp := &FetchResponse{}

	var packData []byte
	section := ""

	for {
		msg, err := it.Next()
		if err != nil {
			break
		}

		switch msg.Kind {
		case MessageNormal:
			line := strings.TrimSuffix(string(msg.Bytes), "\n")
			switch line {
			case "acknowledgments", "shallow-info", "wanted-refs":
				section = line
				continue
			}

			switch section {
			case "acknowledgments":
				switch {
				case line == "NAK":
					resp.Acks.Nack = true
				case strings.HasPrefix(line, "ACK "):
					resp.Acks.Acks = append(resp.Acks.Acks, strings.TrimPrefix(line, "ACK "))
				}
			case "shallow-info":
				switch {
				case strings.HasPrefix(line, "shallow "):
					resp.Shallow = append(resp.Shallow, ShallowInfo{Shallowness: Shallow, Object: strings.TrimPrefix(line, "shallow ")})
				case strings.HasPrefix(line, "unshallow "):
					resp.Shallow = append(resp.Shallow, ShallowInfo{Shallowness: Unshallow, Object: strings.TrimPrefix(line, "unshallow ")})
				}
			case "wanted-refs":
				parts := strings.SplitN(line, " ", 2)
				if len(parts) == 2 {
					resp.WantedRefs = append(resp.WantedRefs, WantedRef{Object: parts[0], RefName: parts[1]})
				}
			}
		case MessageDelim:
			section = ""
		case MessagePackStart:
			section = "packfile"
		case MessagePackData:
			packData = append(packData, msg.Bytes...)
		case MessagePackError:
			return resp, &GitServerError{ErrorType: "fatal", Message: msg.Text}
		}
	}

	if len(packData) > 0 {
		pf, err := ParsePackfile(packData)
		if err != nil {
			return nil, err
		}
		resp.Packfile = pf
	}

	return resp, nil
}
