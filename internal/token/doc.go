// Package token defines the lexical vocabulary of .bl sources.
package token
