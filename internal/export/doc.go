// Package export renders query results. It makes no filtering or ordering
// decisions of its own: every function prints exactly the sequence it is
// handed. Three surfaces are supported: plain path lists for piping, JSON
// documents for machines, and colorized console tables for humans.
package export
