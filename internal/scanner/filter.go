package scanner

import (
	"path"
	"strings"
)

// defaultSkipExtensions covers binary, media, archive and document formats
// whose content is either not text or not worth tokenizing. Superset of the
// historical .png/.jpg/.pdf/.exe/.zip list.
var defaultSkipExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".svg", ".webp",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".7z", ".rar", ".jar",
	".exe", ".dll", ".so", ".dylib", ".bin", ".class", ".pyc", ".wasm",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".mp3", ".mp4", ".avi", ".mov", ".mkv", ".wav", ".flac", ".ogg",
	".parquet", ".avro", ".orc",
}

// defaultSkipContentTypes are matched as prefixes against the object's
// declared content type, when one is known.
var defaultSkipContentTypes = []string{
	"image/",
	"video/",
	"audio/",
	"font/",
	"application/zip",
	"application/gzip",
	"application/x-tar",
	"application/pdf",
	"application/octet-stream",
	"application/vnd.ms-",
	"application/vnd.openxmlformats",
}

// Blacklist decides, from metadata alone, whether an object should be
// skipped before any bytes are fetched.
type Blacklist struct {
	extensions   map[string]struct{}
	contentTypes []string
}

// NewBlacklist builds a blacklist from the default denylist plus any extra
// extensions. Extensions are matched case-insensitively and may be given
// with or without the leading dot.
func NewBlacklist(extraExtensions []string) *Blacklist {
	b := &Blacklist{
		extensions:   make(map[string]struct{}, len(defaultSkipExtensions)+len(extraExtensions)),
		contentTypes: defaultSkipContentTypes,
	}
	for _, ext := range defaultSkipExtensions {
		b.extensions[ext] = struct{}{}
	}
	for _, ext := range extraExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		b.extensions[ext] = struct{}{}
	}
	return b
}

// Skip reports whether ref should be excluded from scanning. A missing
// content type falls back to extension-only matching.
func (b *Blacklist) Skip(ref ObjectRef) bool {
	ext := strings.ToLower(path.Ext(ref.Key))
	if ext != "" {
		if _, denied := b.extensions[ext]; denied {
			return true
		}
	}
	if ref.ContentType != "" {
		ct := strings.ToLower(ref.ContentType)
		for _, prefix := range b.contentTypes {
			if strings.HasPrefix(ct, prefix) {
				return true
			}
		}
	}
	return false
}
