package source

import (
	"strconv"
)

// Span is a half-open byte range [Start, End) inside one file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// IsValid reports whether the span points into a real file.
func (s Span) IsValid() bool { return s.File != NoFileID }

func (s Span) Len() uint32 { return s.End - s.Start }

func (s Span) String() string {
	return strconv.FormatUint(uint64(s.File), 10) + ":" +
		strconv.FormatUint(uint64(s.Start), 10) + "-" + strconv.FormatUint(uint64(s.End), 10)
}

// Cover extends s to include other. Spans of different files leave s as
// is; an invalid s takes other.
func (s Span) Cover(other Span) Span {
	switch {
	case !s.IsValid():
		return other
	case s.File != other.File:
		return s
	}
	s.Start = min(s.Start, other.Start)
	s.End = max(s.End, other.End)
	return s
}
