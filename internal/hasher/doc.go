// Package hasher computes content digests for media files. Hashes identify
// byte-identical duplicates regardless of file name or location, so the
// digest covers file content only, never path or timestamps.
package hasher
