// Package attachment scores a single attachment's risk from its raw bytes
// and filename. Analysis is a pure function: same inputs, same output,
// no I/O and no shared state.
package attachment

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/aegismail/threat-engine/internal/domain/archive"
	"github.com/aegismail/threat-engine/internal/domain/filetype"
	"github.com/aegismail/threat-engine/internal/domain/macro"
)

// Analysis is the full risk assessment of one attachment.
//
// Invariant: RiskScore is derived from the boolean/flag fields by the fixed
// weight table below and is never set independently of them.
type Analysis struct {
	Filename            string            `json:"filename"`
	Size                int               `json:"size"`
	FileType            filetype.Result   `json:"file_type"`
	IsDangerous         bool              `json:"is_dangerous"`
	IsExecutable        bool              `json:"is_executable"`
	IsScript            bool              `json:"is_script"`
	IsArchive           bool              `json:"is_archive"`
	IsOffice            bool              `json:"is_office"`
	Macros              []macro.Macro     `json:"macros,omitempty"`
	HasSuspiciousMacros bool              `json:"has_suspicious_macros"`
	Archive             *archive.Contents `json:"archive,omitempty"`
	PasswordProtected   bool              `json:"password_protected"`
	URLs                []string          `json:"urls,omitempty"`
	DoubleExtension     bool              `json:"double_extension"`
	RTLOverride         bool              `json:"rtl_override"`
	RealExtension       string            `json:"real_extension,omitempty"`
	SizeAnomaly         bool              `json:"size_anomaly"`
	ExtensionMismatch   bool              `json:"extension_mismatch"`
	RiskScore           int               `json:"risk_score"`
	RiskLevel           domain.RiskLevel  `json:"risk_level"`
	RiskFactors         []string          `json:"risk_factors"`
	AnalysisTimeMs      int64             `json:"analysis_time_ms"`
	AnalyzedAt          time.Time         `json:"analyzed_at"`
}

// Weights is the risk-scoring policy. The defaults are product policy and
// must stay behaviorally stable; expose overrides through configuration
// rather than editing constants in place.
type Weights struct {
	Executable            int
	Script                int
	DangerousExtension    int
	Macros                int
	SuspiciousMacros      int
	DoubleExtension       int
	RTLOverride           int
	ExtensionMismatch     int
	NestedArchives        int
	DangerousInArchive    int // per file
	DangerousInArchiveCap int
	PasswordProtected     int
	SizeAnomaly           int
}

// DefaultWeights returns the standard risk-weight policy
func DefaultWeights() Weights {
	return Weights{
		Executable:            50,
		Script:                40,
		DangerousExtension:    30,
		Macros:                20,
		SuspiciousMacros:      35,
		DoubleExtension:       40,
		RTLOverride:           45,
		ExtensionMismatch:     25,
		NestedArchives:        15,
		DangerousInArchive:    10,
		DangerousInArchiveCap: 30,
		PasswordProtected:     20,
		SizeAnomaly:           10,
	}
}

var executableExtensions = map[string]bool{
	".exe": true, ".scr": true, ".com": true, ".pif": true, ".msi": true,
	".dll": true, ".app": true,
}

var scriptExtensions = map[string]bool{
	".bat": true, ".cmd": true, ".vbs": true, ".js": true, ".ps1": true,
	".sh": true, ".hta": true, ".wsf": true, ".jse": true,
}

var archiveExtensions = map[string]bool{
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true,
	".bz2": true, ".xz": true,
}

var officeExtensions = map[string]bool{
	".doc": true, ".docx": true, ".docm": true, ".xls": true, ".xlsx": true,
	".xlsm": true, ".ppt": true, ".pptx": true, ".pptm": true, ".rtf": true,
}

var dangerousExtensions = map[string]bool{
	".exe": true, ".scr": true, ".bat": true, ".cmd": true, ".com": true,
	".pif": true, ".vbs": true, ".js": true, ".jar": true, ".msi": true,
	".dll": true, ".ps1": true, ".hta": true, ".lnk": true, ".wsf": true,
}

// knownExtensions feed double-extension detection: "invoice.pdf.exe" is only
// a spoof when the inner part is a plausible extension itself
var knownExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".csv": true, ".jpg": true,
	".jpeg": true, ".png": true, ".gif": true, ".html": true, ".htm": true,
	".zip": true, ".mp3": true, ".mp4": true,
}

// equivalentExtensions lists interchangeable extension pairs that must not
// count as a content/extension mismatch
var equivalentExtensions = map[string][]string{
	".jpg":  {".jpeg", ".jfif"},
	".jpeg": {".jpg", ".jfif"},
	".htm":  {".html"},
	".html": {".htm"},
	".tif":  {".tiff"},
	".tiff": {".tif"},
}

// ooxmlExtensions share the ZIP magic bytes by design, so a detected type of
// zip/docx/xlsx/pptx never mismatches any of them
var ooxmlExtensions = map[string]bool{
	".docx": true, ".xlsx": true, ".pptx": true, ".docm": true,
	".xlsm": true, ".pptm": true, ".zip": true, ".jar": true,
	".odt": true, ".ods": true, ".odp": true,
}

// oleExtensions share the OLE compound-file signature
var oleExtensions = map[string]bool{
	".doc": true, ".xls": true, ".ppt": true, ".msi": true, ".msg": true,
}

const rtlOverride = '‮'

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Analyzer computes attachment risk with a fixed weight policy
type Analyzer struct {
	weights Weights
}

// NewAnalyzer creates an analyzer with the default risk-weight policy
func NewAnalyzer() *Analyzer {
	return &Analyzer{weights: DefaultWeights()}
}

// NewAnalyzerWithWeights creates an analyzer with a custom weight policy
func NewAnalyzerWithWeights(w Weights) *Analyzer {
	return &Analyzer{weights: w}
}

// Analyze inspects one attachment buffer and returns its full risk assessment
func (a *Analyzer) Analyze(buf []byte, filename string) Analysis {
	start := time.Now()

	analysis := Analysis{
		Filename:    filename,
		Size:        len(buf),
		FileType:    filetype.Identify(buf),
		RiskFactors: []string{},
		AnalyzedAt:  start,
	}

	ext := extensionOf(filename)

	// Classification is the union of the filename extension and the detected
	// content category: either signal alone is sufficient
	analysis.IsExecutable = executableExtensions[ext] || analysis.FileType.Category == filetype.CategoryExecutable
	analysis.IsScript = scriptExtensions[ext] || analysis.FileType.Category == filetype.CategoryScript
	analysis.IsArchive = archiveExtensions[ext] || analysis.FileType.Category == filetype.CategoryArchive
	analysis.IsOffice = officeExtensions[ext] || isOfficeType(analysis.FileType.Type)
	analysis.IsDangerous = dangerousExtensions[ext] || analysis.IsExecutable || analysis.IsScript

	analysis.DoubleExtension = hasDoubleExtension(filename)
	if strings.ContainsRune(filename, rtlOverride) {
		analysis.RTLOverride = true
		analysis.RealExtension = ext
	}

	analysis.ExtensionMismatch = isExtensionMismatch(ext, analysis.FileType)
	analysis.FileType.ExtensionMatch = ext != "" && !analysis.ExtensionMismatch && analysis.FileType.Detected
	analysis.FileType.Mismatch = analysis.ExtensionMismatch

	if analysis.IsArchive || analysis.FileType.Type == "zip" {
		if contents, err := archive.Inspect(buf); err == nil && contents.Supported {
			analysis.Archive = &contents
		}
	}

	scan := macro.Extract(buf)
	analysis.Macros = scan.Macros
	analysis.HasSuspiciousMacros = scan.Suspicious

	analysis.PasswordProtected = isPasswordProtected(buf, analysis.Archive)
	analysis.SizeAnomaly = isSizeAnomaly(len(buf), analysis)
	analysis.URLs = extractURLs(buf)

	a.score(&analysis)

	analysis.AnalysisTimeMs = time.Since(start).Milliseconds()
	return analysis
}

// score derives RiskScore/RiskLevel/RiskFactors from the computed flags.
// Additive fixed weights, capped at 100.
func (a *Analyzer) score(an *Analysis) {
	score := 0
	add := func(points int, factor string) {
		score += points
		an.RiskFactors = append(an.RiskFactors, factor)
	}

	if an.IsExecutable {
		add(a.weights.Executable, "executable file")
	}
	if an.IsScript {
		add(a.weights.Script, "script file")
	}
	if an.IsDangerous && !an.IsExecutable && !an.IsScript {
		add(a.weights.DangerousExtension, "dangerous file extension")
	}
	if len(an.Macros) > 0 {
		add(a.weights.Macros, "contains macros")
		if an.HasSuspiciousMacros {
			add(a.weights.SuspiciousMacros, "suspicious macro keywords")
		}
	}
	if an.DoubleExtension {
		add(a.weights.DoubleExtension, "double file extension")
	}
	if an.RTLOverride {
		add(a.weights.RTLOverride, "right-to-left override character")
	}
	if an.ExtensionMismatch {
		add(a.weights.ExtensionMismatch, fmt.Sprintf("extension does not match content (%s)", an.FileType.Type))
	}
	if an.Archive != nil {
		if len(an.Archive.NestedArchives) > 0 {
			add(a.weights.NestedArchives, "nested archives")
		}
		if n := len(an.Archive.DangerousFiles); n > 0 {
			points := n * a.weights.DangerousInArchive
			if points > a.weights.DangerousInArchiveCap {
				points = a.weights.DangerousInArchiveCap
			}
			add(points, fmt.Sprintf("%d dangerous files inside archive", n))
		}
	}
	if an.PasswordProtected {
		add(a.weights.PasswordProtected, "password protected")
	}
	if an.SizeAnomaly {
		add(a.weights.SizeAnomaly, "anomalous file size")
	}
	switch n := len(an.URLs); {
	case n > 20:
		add(15, fmt.Sprintf("very high URL density (%d URLs)", n))
	case n > 10:
		add(10, fmt.Sprintf("high URL density (%d URLs)", n))
	case n > 5:
		add(5, fmt.Sprintf("elevated URL density (%d URLs)", n))
	}

	if score > 100 {
		score = 100
	}
	an.RiskScore = score
	an.RiskLevel = domain.RiskLevelFromScore(score)
}

func extensionOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx:])
}

// hasDoubleExtension reports filenames like "invoice.pdf.exe" where the
// penultimate segment is itself a plausible extension
func hasDoubleExtension(filename string) bool {
	parts := strings.Split(strings.ToLower(filename), ".")
	if len(parts) < 3 {
		return false
	}
	return knownExtensions["."+parts[len(parts)-2]]
}

// isExtensionMismatch reports whether the filename extension contradicts the
// detected content type. Known-equivalent pairs and the shared-magic-byte
// container families (OOXML/ZIP, OLE) are exempt.
func isExtensionMismatch(ext string, ft filetype.Result) bool {
	if !ft.Detected || ext == "" || ft.Extension == "" {
		return false
	}
	if ext == ft.Extension {
		return false
	}
	for _, eq := range equivalentExtensions[ft.Extension] {
		if ext == eq {
			return false
		}
	}
	// ZIP-based containers share magic bytes by design
	if (ft.Type == "zip" || ft.Type == "docx" || ft.Type == "xlsx" || ft.Type == "pptx") && ooxmlExtensions[ext] {
		return false
	}
	if ft.Type == "ole" && oleExtensions[ext] {
		return false
	}
	// Low-confidence detections (the plain-text heuristic) are too weak to
	// contradict the extension
	if ft.Confidence < 0.9 {
		return false
	}
	return true
}

// isPasswordProtected checks the ZIP encryption flag and the PDF/OLE
// encryption markers
func isPasswordProtected(buf []byte, contents *archive.Contents) bool {
	if contents != nil && contents.Encrypted {
		return true
	}
	if len(buf) >= 4 && string(buf[:4]) == "%PDF" && strings.Contains(string(buf), "/Encrypt") {
		return true
	}
	if len(buf) >= 8 && buf[0] == 0xD0 && buf[1] == 0xCF {
		s := string(buf)
		if strings.Contains(s, "EncryptedPackage") || strings.Contains(s, "StrongEncryptionDataSpace") {
			return true
		}
	}
	return false
}

// isSizeAnomaly flags sizes implausible for the classified type: tiny
// executables are droppers/stubs, huge images and tiny archives/documents
// are crafted or corrupt
func isSizeAnomaly(size int, an Analysis) bool {
	switch {
	case an.IsExecutable && size > 0 && size < 4*1024:
		return true
	case an.FileType.Category == filetype.CategoryImage && size > 50*1024*1024:
		return true
	case an.IsArchive && size > 0 && size < 50:
		return true
	case an.FileType.Category == filetype.CategoryDocument && size > 0 && size < 100:
		return true
	default:
		return false
	}
}

// extractURLs scans the buffer for http(s) URLs, trims trailing punctuation
// and de-duplicates preserving first-appearance order
func extractURLs(buf []byte) []string {
	matches := urlPattern.FindAll(buf, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		url := strings.TrimRight(string(m), ".,;:!?)]}")
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		urls = append(urls, url)
	}
	return urls
}

func isOfficeType(typeID string) bool {
	switch typeID {
	case "docx", "xlsx", "pptx", "ole", "rtf":
		return true
	default:
		return false
	}
}
