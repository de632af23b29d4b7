// Package query holds the read-side logic the database layer stays out of:
// duplicate-group derivation, the never-every-copy listing rule, and
// suffix-sibling pairing. Everything here is derived fresh from database
// contents on each call and nothing mutates a record.
package query
