package filetype

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestIdentify_MagicBytes(t *testing.T) {
	tests := []struct {
		name             string
		buf              []byte
		expectedType     string
		expectedCategory Category
	}{
		{
			name:             "Windows executable",
			buf:              append([]byte{0x4D, 0x5A, 0x90, 0x00}, make([]byte, 64)...),
			expectedType:     "exe",
			expectedCategory: CategoryExecutable,
		},
		{
			name:             "PDF document",
			buf:              []byte("%PDF-1.7 some content"),
			expectedType:     "pdf",
			expectedCategory: CategoryDocument,
		},
		{
			name:             "OLE compound file",
			buf:              append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 32)...),
			expectedType:     "ole",
			expectedCategory: CategoryDocument,
		},
		{
			name:             "PNG image",
			buf:              []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
			expectedType:     "png",
			expectedCategory: CategoryImage,
		},
		{
			name:             "RAR archive",
			buf:              []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00},
			expectedType:     "rar",
			expectedCategory: CategoryArchive,
		},
		{
			name:             "shell script shebang",
			buf:              []byte("#!/bin/sh\necho hi\n"),
			expectedType:     "shebang",
			expectedCategory: CategoryScript,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Identify(tt.buf)
			assert.True(t, result.Detected)
			assert.Equal(t, tt.expectedType, result.Type)
			assert.Equal(t, tt.expectedCategory, result.Category)
			assert.True(t, result.MagicMatch)
			assert.Equal(t, 1.0, result.Confidence)
		})
	}
}

func TestIdentify_EmptyBuffer(t *testing.T) {
	result := Identify(nil)
	assert.False(t, result.Detected)

	result = Identify([]byte{})
	assert.False(t, result.Detected)
}

func TestIdentify_OOXMLDisambiguation(t *testing.T) {
	tests := []struct {
		name         string
		entries      []string
		expectedType string
		expectedExt  string
	}{
		{"Word document", []string{"[Content_Types].xml", "word/document.xml"}, "docx", ".docx"},
		{"Excel workbook", []string{"[Content_Types].xml", "xl/workbook.xml"}, "xlsx", ".xlsx"},
		{"PowerPoint presentation", []string{"ppt/presentation.xml"}, "pptx", ".pptx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Identify(buildZip(t, tt.entries...))
			assert.True(t, result.Detected)
			assert.Equal(t, tt.expectedType, result.Type)
			assert.Equal(t, tt.expectedExt, result.Extension)
			assert.Equal(t, CategoryDocument, result.Category)
			assert.Equal(t, 0.95, result.Confidence)
		})
	}
}

func TestIdentify_PlainZipStaysZip(t *testing.T) {
	result := Identify(buildZip(t, "readme.txt", "data/info.csv"))
	assert.Equal(t, "zip", result.Type)
	assert.Equal(t, CategoryArchive, result.Category)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestIdentify_TextHeuristic(t *testing.T) {
	result := Identify([]byte("Dear team,\n\nPlease find the quarterly report attached.\n\nBest regards"))
	assert.True(t, result.Detected)
	assert.Equal(t, "text", result.Type)
	assert.Equal(t, 0.6, result.Confidence)
	assert.False(t, result.MagicMatch)
}

func TestIdentify_BinaryGarbageIsUnknown(t *testing.T) {
	result := Identify(bytes.Repeat([]byte{0x00, 0xFE, 0x01, 0xFF}, 64))
	assert.False(t, result.Detected)
	assert.Equal(t, "unknown", result.Type)
	assert.Equal(t, CategoryUnknown, result.Category)
	assert.Equal(t, 0.0, result.Confidence)
}
