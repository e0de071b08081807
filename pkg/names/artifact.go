package names

import (
	"path/filepath"
	"strings"
	"time"
)

// StampLayout is the run timestamp format shared by every artifact of one run.
const StampLayout = "20060102150405"

// Stamp formats t with StampLayout.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// Split returns the stem and extension of the last element of path.
// Dotfiles such as ".env" have no extension, and a trailing separator is ignored.
func Split(path string) (stem, ext string) {
	base := filepath.Base(strings.TrimRight(path, `/\`))
	ext = filepath.Ext(base)
	if ext == base {
		return base, ""
	}
	return strings.TrimSuffix(base, ext), ext
}

// Artifact builds "<stem>_<stamp><ext>". ext carries its leading dot or is empty.
func Artifact(stem, stamp, ext string) string {
	return stem + "_" + stamp + ext
}

// FileArtifact names the copy of a single file, keeping its extension.
func FileArtifact(source, stamp string) string {
	stem, ext := Split(source)
	return Artifact(stem, stamp, ext)
}

// DirArtifact names the copy of a directory tree. No extension is appended.
func DirArtifact(source, stamp string) string {
	stem, _ := Split(source)
	return Artifact(stem, stamp, "")
}

// DatabaseArtifact names a database dump, e.g. "sales_20240115093000.bak".
func DatabaseArtifact(database, stamp, ext string) string {
	return Artifact(database, stamp, ext)
}
