package datauri

import "strings"

// extensions maps known MIME types to filename extensions.
var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/heic":    ".heic",
	"image/svg+xml": ".svg",
	"image/tiff":    ".tiff",

	"application/pdf":               ".pdf",
	"application/zip":               ".zip",
	"application/gzip":              ".gz",
	"application/x-7z-compressed":   ".7z",
	"application/x-rar-compressed":  ".rar",
	"application/x-tar":             ".tar",
	"application/json":              ".json",
	"application/xml":               ".xml",
	"application/msword":            ".doc",
	"application/vnd.ms-excel":      ".xls",
	"application/vnd.ms-powerpoint": ".ppt",

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",

	"text/plain":    ".txt",
	"text/csv":      ".csv",
	"text/html":     ".html",
	"text/markdown": ".md",

	"audio/mpeg":      ".mp3",
	"audio/wav":       ".wav",
	"audio/ogg":       ".ogg",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// SelectExtension returns the filename extension (with leading dot) for a MIME
// type, or "" when the type is unknown. Parameters such as "; charset=utf-8"
// are ignored.
func SelectExtension(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return extensions[mt]
}
