package source

import "sort"

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, stdin, generated).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
	// FileIncBin marks raw binary content included verbatim.
	FileIncBin
)

// File captures metadata and content for a single source file.
//
// Content is immutable except for in-place erasure (preprocessor removes
// inactive regions and directives); callers that erase must call Update.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of '\n' bytes
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// Update recomputes the line table after content was overwritten in place.
func (f *File) Update() {
	f.LineIdx = buildLineIndex(f.Content)
}

// LineOf returns the 0-based line containing the byte offset.
func (f *File) LineOf(off int) int {
	return sort.Search(len(f.LineIdx), func(i int) bool {
		return int(f.LineIdx[i]) >= off
	})
}

// LineStart returns the byte offset where the 0-based line begins.
func (f *File) LineStart(line int) int {
	if line <= 0 {
		return 0
	}
	if line-1 >= len(f.LineIdx) {
		return len(f.Content)
	}
	return int(f.LineIdx[line-1]) + 1
}

// All returns a CodeString spanning the whole file.
func (f *File) All() CodeString {
	return CodeString{File: f, Index: 0, Length: len(f.Content), Line: 0}
}

// GetLine returns the text of the 1-based line, or "" when out of range.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	start := f.LineStart(int(lineNum) - 1)
	if start >= len(f.Content) {
		return ""
	}
	end := len(f.Content)
	if int(lineNum)-1 < len(f.LineIdx) {
		end = int(f.LineIdx[lineNum-1])
	}
	return string(f.Content[start:end])
}
