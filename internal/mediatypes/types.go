package mediatypes

import (
	"path/filepath"
	"strings"
)

// MediaType classifies an indexed file.
type MediaType string

const (
	// MediaTypeImage represents an image file.
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo represents a video file.
	MediaTypeVideo MediaType = "video"
	// MediaTypeUnknown represents a file that is not a supported media type.
	MediaTypeUnknown MediaType = "unknown"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// RawExtensions maps file extensions to whether they are camera RAW formats.
// RAW files are classified as images but cannot be decoded for dimensions.
var RawExtensions = map[string]bool{
	".cr2": true,
	".cr3": true,
	".nef": true,
	".arw": true,
	".dng": true,
	".orf": true,
	".raf": true,
	".rw2": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
	".mts":  true,
	".m2ts": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
	".mts":  "video/mp2t",
	".m2ts": "video/mp2t",
}

// systemFiles are OS metadata files excluded from scanning regardless of extension.
var systemFiles = map[string]bool{
	"thumbs.db":   true,
	"desktop.ini": true,
	".ds_store":   true,
}

// GetMediaType returns the MediaType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns MediaTypeUnknown if the extension is not recognized.
func GetMediaType(ext string) MediaType {
	if ImageExtensions[ext] || RawExtensions[ext] {
		return MediaTypeImage
	}
	if VideoExtensions[ext] {
		return MediaTypeVideo
	}
	return MediaTypeUnknown
}

// GetMediaTypeForPath classifies a path by its extension.
func GetMediaTypeForPath(path string) MediaType {
	return GetMediaType(strings.ToLower(filepath.Ext(path)))
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	return GetMediaType(ext) != MediaTypeUnknown
}

// IsRaw returns true if the extension is a camera RAW format.
func IsRaw(ext string) bool {
	return RawExtensions[ext]
}

// IsHidden returns true for dotfiles and OS metadata files that should be
// skipped during enumeration.
func IsHidden(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return systemFiles[strings.ToLower(name)]
}
