package macro

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oleDocument(t *testing.T, payload string) []byte {
	t.Helper()
	buf := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	buf = append(buf, make([]byte, 64)...)
	return append(buf, []byte(payload)...)
}

func ooxmlDocument(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range members {
		// stored, not deflated, so the keyword scan sees the raw bytes
		f, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtract_OLEWithVBAProject(t *testing.T) {
	scan := Extract(oleDocument(t, "padding ThisDocument padding Attribute VB_Name"))

	assert.True(t, scan.HasMacros)
	require.NotEmpty(t, scan.Macros)

	kinds := map[string]Kind{}
	for _, m := range scan.Macros {
		kinds[m.Name] = m.Kind
	}
	assert.Equal(t, KindAutoExec, kinds["ThisDocument"])
}

func TestExtract_OLESuspiciousKeywords(t *testing.T) {
	scan := Extract(oleDocument(t, `_VBA_PROJECT Sub AutoOpen() CreateObject("WScript.Shell").Run "cmd.exe /c whoami" End Sub`))

	assert.True(t, scan.HasMacros)
	assert.True(t, scan.Suspicious)
	assert.Contains(t, scan.SuspiciousKeywords, "WScript.Shell")
	assert.Contains(t, scan.SuspiciousKeywords, "cmd.exe")
	assert.Contains(t, scan.SuspiciousKeywords, "CreateObject")
}

func TestExtract_OLEWithoutMacros(t *testing.T) {
	scan := Extract(oleDocument(t, "just ordinary compound file streams"))

	assert.False(t, scan.HasMacros)
	assert.Empty(t, scan.Macros)
	assert.False(t, scan.Suspicious)
}

func TestExtract_OOXMLMacroEnabled(t *testing.T) {
	buf := ooxmlDocument(t, map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   "<document/>",
		"word/vbaProject.bin": "binary project",
	})

	scan := Extract(buf)
	assert.True(t, scan.HasMacros)
	require.Len(t, scan.Macros, 1)
	assert.Equal(t, "word/vbaProject.bin", scan.Macros[0].Name)
}

func TestExtract_OOXMLSuspiciousContent(t *testing.T) {
	buf := ooxmlDocument(t, map[string]string{
		"word/document.xml":   "<document/>",
		"word/vbaProject.bin": `Shell("PowerShell -enc ...") URLDownloadToFile`,
	})

	scan := Extract(buf)
	assert.True(t, scan.HasMacros)
	assert.True(t, scan.Suspicious)
	assert.Contains(t, scan.SuspiciousKeywords, "PowerShell")
	assert.Contains(t, scan.SuspiciousKeywords, "URLDownloadToFile")
}

func TestExtract_OOXMLWithoutMacros(t *testing.T) {
	buf := ooxmlDocument(t, map[string]string{
		"word/document.xml": "<document/>",
	})

	scan := Extract(buf)
	assert.False(t, scan.HasMacros)
	assert.False(t, scan.Suspicious)
}

func TestExtract_PlainBuffers(t *testing.T) {
	assert.False(t, Extract([]byte("plain text, no container")).HasMacros)
	assert.False(t, Extract(nil).HasMacros)
}
