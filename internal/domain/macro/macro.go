// Package macro statically detects VBA macro containers in Office documents.
// No macro code is ever executed or deobfuscated; detection is purely a
// signature and keyword scan over the raw bytes.
package macro

import (
	"bytes"
	"strings"

	"github.com/aegismail/threat-engine/internal/domain/archive"
)

// Kind classifies a detected macro by its likely trigger/shape
type Kind string

const (
	KindAutoExec Kind = "auto_exec"
	KindUserForm Kind = "user_form"
	KindModule   Kind = "module"
	KindClass    Kind = "class"
	KindUnknown  Kind = "unknown"
)

// Macro is one detected macro container or module
type Macro struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Scan is the result of macro extraction over one buffer
type Scan struct {
	HasMacros          bool     `json:"has_macros"`
	Macros             []Macro  `json:"macros"`
	Suspicious         bool     `json:"suspicious"`
	SuspiciousKeywords []string `json:"suspicious_keywords,omitempty"`
}

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
var zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}

// vbaContainerIndicators are byte strings whose presence inside an OLE
// compound file marks a VBA project
var vbaContainerIndicators = []string{
	"_VBA_PROJECT",
	"VBA_PROJECT",
	"ThisDocument",
	"ThisWorkbook",
	"Macros",
	"Attribute VB_",
}

// suspiciousKeywords are VBA primitives typical of droppers: process
// spawning, shell execution, obfuscation helpers and network calls
var suspiciousKeywords = []string{
	"Shell",
	"WScript.Shell",
	"CreateObject",
	"PowerShell",
	"cmd.exe",
	"CreateProcess",
	"URLDownloadToFile",
	"XMLHTTP",
	"WinHttp",
	"Chr(",
	"StrReverse",
	"CallByName",
	"Environ",
	"ExecuteExcel4Macro",
}

// Extract detects macro containers in a raw document buffer.
//
// Two independent paths may both fire: the legacy OLE compound-file path
// (binary indicator scan) and the OOXML path (archive inspection for a
// vbaProject member). Either is sufficient for HasMacros.
func Extract(buf []byte) Scan {
	scan := Scan{Macros: []Macro{}}

	if len(buf) >= len(oleSignature) && bytes.Equal(buf[:len(oleSignature)], oleSignature) {
		for _, indicator := range vbaContainerIndicators {
			if bytes.Contains(buf, []byte(indicator)) {
				scan.Macros = append(scan.Macros, Macro{Name: indicator, Kind: classify(indicator)})
			}
		}
	}

	if len(buf) >= len(zipSignature) && bytes.Equal(buf[:len(zipSignature)], zipSignature) {
		if contents, err := archive.Inspect(buf); err == nil {
			for _, entry := range contents.Entries {
				if strings.Contains(strings.ToLower(entry.Path), "vbaproject") {
					scan.Macros = append(scan.Macros, Macro{Name: entry.Path, Kind: classify(entry.Path)})
				}
			}
		}
	}

	scan.HasMacros = len(scan.Macros) > 0
	if !scan.HasMacros {
		return scan
	}

	// Keyword scan runs over the raw buffer, independent of which container
	// path matched: one hit marks the whole result suspicious
	for _, keyword := range suspiciousKeywords {
		if bytes.Contains(buf, []byte(keyword)) {
			scan.SuspiciousKeywords = append(scan.SuspiciousKeywords, keyword)
		}
	}
	scan.Suspicious = len(scan.SuspiciousKeywords) > 0

	return scan
}

// classify guesses a macro's kind from name substrings
func classify(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "auto") ||
		strings.Contains(lower, "document_open") ||
		strings.Contains(lower, "workbook_open") ||
		strings.Contains(lower, "thisdocument") ||
		strings.Contains(lower, "thisworkbook"):
		return KindAutoExec
	case strings.Contains(lower, "userform") || strings.Contains(lower, "form"):
		return KindUserForm
	case strings.Contains(lower, "module"):
		return KindModule
	case strings.Contains(lower, "class"):
		return KindClass
	default:
		return KindUnknown
	}
}
