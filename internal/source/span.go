package source

import (
	"fmt"
)

// Span is a half-open byte range [Start, End) inside one file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// NoSpan is the span of findings that belong to no loaded file.
var NoSpan = Span{File: NoFile}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other.
// Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Sub narrows s to the byte range [from, to) relative to s.Start.
// Out of range bounds are clamped to s.
func (s Span) Sub(from, to uint32) Span {
	if from > s.Len() {
		from = s.Len()
	}
	if to > s.Len() {
		to = s.Len()
	}
	if to < from {
		to = from
	}
	return Span{File: s.File, Start: s.Start + from, End: s.Start + to}
}
