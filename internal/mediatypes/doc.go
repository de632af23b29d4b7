// Package mediatypes provides media file type classification for the indexer.
//
// It maps file extensions to media types (image, video) and MIME types, and
// identifies hidden and OS metadata files that should be excluded from
// scanning.
//
// Supported file types:
//   - Images: jpg, jpeg, png, gif, bmp, webp, tiff, heic, heif plus camera
//     RAW formats (cr2, cr3, nef, arw, dng, orf, raf, rw2)
//   - Videos: mp4, mkv, avi, mov, wmv, flv, webm, m4v, mpeg, mpg, 3gp, ts,
//     mts, m2ts
package mediatypes
