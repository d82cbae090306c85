// Package archive performs structural inspection of archive containers
// without decompressing member payloads.
//
// The parser is written for hostile input: a malformed or truncated archive
// must yield a best-effort empty result, never a panic or a hang.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
)

// Entry describes one member of an archive's central directory
type Entry struct {
	Path             string `json:"path"`
	Filename         string `json:"filename"`
	UncompressedSize uint64 `json:"uncompressed_size"`
	CompressedSize   uint64 `json:"compressed_size"`
	IsDirectory      bool   `json:"is_directory"`
	Encrypted        bool   `json:"encrypted"`
	Extension        string `json:"extension"`
	Dangerous        bool   `json:"dangerous"`
	NestedArchive    bool   `json:"nested_archive"`
}

// Contents is the structural summary of an inspected archive.
// Entries preserve central-directory order; path-depth computation and
// upstream reporting rely on that ordering.
type Contents struct {
	Format         string   `json:"format"`
	Supported      bool     `json:"supported"`
	TotalEntries   int      `json:"total_entries"`
	TotalSize      uint64   `json:"total_size"`
	CompressedSize uint64   `json:"compressed_size"`
	Encrypted      bool     `json:"encrypted"`
	Entries        []Entry  `json:"entries"`
	DangerousFiles []string `json:"dangerous_files"`
	NestedArchives []string `json:"nested_archives"`
	MaxDepth       int      `json:"max_depth"`
}

// ErrUnrecognized is returned when the buffer carries no known archive signature
var ErrUnrecognized = errors.New("archive: unrecognized format")

var (
	zipLocalSig   = []byte{0x50, 0x4B, 0x03, 0x04}
	zipCentralSig = []byte{0x50, 0x4B, 0x01, 0x02}
	zipEOCDSig    = []byte{0x50, 0x4B, 0x05, 0x06}
	rarSig        = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07}
	sevenZipSig   = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
)

// dangerousExtensions is the deny-list of member extensions that indicate a
// payload capable of running code on the victim's machine
var dangerousExtensions = map[string]bool{
	".exe": true, ".scr": true, ".bat": true, ".cmd": true, ".com": true,
	".pif": true, ".vbs": true, ".js": true, ".jar": true, ".msi": true,
	".dll": true, ".ps1": true, ".hta": true, ".lnk": true, ".wsf": true,
}

// archiveExtensions marks members that are themselves archives (nesting)
var archiveExtensions = map[string]bool{
	".zip": true, ".rar": true, ".7z": true, ".tar": true,
	".gz": true, ".bz2": true, ".xz": true,
}

// Inspect identifies the archive format and, for ZIP, walks the central
// directory to enumerate entries.
//
// RAR and 7-Zip are recognized by signature but return an empty result with
// Supported == false: reporting nothing truthfully beats reporting wrong
// structure from a format we do not parse.
func Inspect(buf []byte) (Contents, error) {
	switch {
	case len(buf) >= 4 && bytes.Equal(buf[:4], zipLocalSig):
		return inspectZip(buf), nil
	case len(buf) >= 6 && bytes.Equal(buf[:6], rarSig):
		return Contents{Format: "rar", Supported: false}, nil
	case len(buf) >= 6 && bytes.Equal(buf[:6], sevenZipSig):
		return Contents{Format: "7z", Supported: false}, nil
	default:
		return Contents{}, ErrUnrecognized
	}
}

// inspectZip locates the End-Of-Central-Directory record and walks the
// central directory sequentially. Any structural corruption stops the walk
// and returns whatever was parsed up to that point.
func inspectZip(buf []byte) Contents {
	contents := Contents{
		Format:         "zip",
		Supported:      true,
		Entries:        []Entry{},
		DangerousFiles: []string{},
		NestedArchives: []string{},
	}

	eocd := findEOCD(buf)
	if eocd < 0 {
		return contents
	}

	// EOCD fixed fields: total entries at +10, directory size at +12,
	// directory offset at +16
	entryCount := int(binary.LittleEndian.Uint16(buf[eocd+10 : eocd+12]))
	cdSize := int(binary.LittleEndian.Uint32(buf[eocd+12 : eocd+16]))
	cdOffset := int(binary.LittleEndian.Uint32(buf[eocd+16 : eocd+20]))

	if cdOffset < 0 || cdOffset >= len(buf) || cdSize < 0 {
		return contents
	}
	cdEnd := cdOffset + cdSize
	if cdEnd > len(buf) {
		cdEnd = len(buf)
	}

	pos := cdOffset
	for i := 0; i < entryCount; i++ {
		// Fixed central-directory header is 46 bytes
		if pos+46 > cdEnd || !bytes.Equal(buf[pos:pos+4], zipCentralSig) {
			break // truncated or corrupt: keep what we have
		}

		flags := binary.LittleEndian.Uint16(buf[pos+8 : pos+10])
		compressedSize := binary.LittleEndian.Uint32(buf[pos+20 : pos+24])
		uncompressedSize := binary.LittleEndian.Uint32(buf[pos+24 : pos+28])
		nameLen := int(binary.LittleEndian.Uint16(buf[pos+28 : pos+30]))
		extraLen := int(binary.LittleEndian.Uint16(buf[pos+30 : pos+32]))
		commentLen := int(binary.LittleEndian.Uint16(buf[pos+32 : pos+34]))

		if pos+46+nameLen > cdEnd {
			break
		}
		path := string(buf[pos+46 : pos+46+nameLen])

		entry := buildEntry(path, uint64(uncompressedSize), uint64(compressedSize), flags)
		contents.Entries = append(contents.Entries, entry)
		contents.TotalSize += entry.UncompressedSize
		contents.CompressedSize += entry.CompressedSize
		if entry.Encrypted {
			contents.Encrypted = true
		}
		if entry.Dangerous {
			contents.DangerousFiles = append(contents.DangerousFiles, entry.Path)
		}
		if entry.NestedArchive {
			contents.NestedArchives = append(contents.NestedArchives, entry.Path)
		}
		if depth := strings.Count(entry.Path, "/"); depth > contents.MaxDepth {
			contents.MaxDepth = depth
		}

		pos += 46 + nameLen + extraLen + commentLen
	}

	contents.TotalEntries = len(contents.Entries)
	return contents
}

// findEOCD scans backward from end-of-buffer for the EOCD signature.
// The record is 22 bytes plus a comment of at most 65535 bytes, which
// bounds the search window.
func findEOCD(buf []byte) int {
	if len(buf) < 22 {
		return -1
	}
	low := len(buf) - 22 - 65535
	if low < 0 {
		low = 0
	}
	for pos := len(buf) - 22; pos >= low; pos-- {
		if bytes.Equal(buf[pos:pos+4], zipEOCDSig) {
			return pos
		}
	}
	return -1
}

func buildEntry(path string, uncompressed, compressed uint64, flags uint16) Entry {
	isDir := strings.HasSuffix(path, "/")
	filename := path
	if idx := strings.LastIndex(strings.TrimSuffix(path, "/"), "/"); idx >= 0 {
		filename = strings.TrimSuffix(path, "/")[idx+1:]
	}
	ext := extensionOf(filename)

	return Entry{
		Path:             path,
		Filename:         filename,
		UncompressedSize: uncompressed,
		CompressedSize:   compressed,
		IsDirectory:      isDir,
		Encrypted:        flags&0x1 != 0, // general-purpose bit 0
		Extension:        ext,
		Dangerous:        !isDir && dangerousExtensions[ext],
		NestedArchive:    !isDir && archiveExtensions[ext],
	}
}

func extensionOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx:])
}
