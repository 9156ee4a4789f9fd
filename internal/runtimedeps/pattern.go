// SPDX-License-Identifier: MPL-2.0

package runtimedeps

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nbuild/nbuild/internal/fsitem"
)

// ErrPatternMismatch is the sentinel wrapped by PatternMismatchError.
var ErrPatternMismatch = errors.New("source and target patterns do not match")

type (
	wildcard string

	// pattern is a slash-separated path split into literal text and
	// wildcards. base is the longest wildcard-free directory prefix.
	pattern struct {
		raw       string
		base      string
		rel       string
		wildcards []wildcard
		parts     []string // literal text around wildcards; len(parts) == len(wildcards)+1
	}

	// PatternMismatchError is returned when a source and target pattern
	// do not use the same wildcards in the same order.
	PatternMismatchError struct {
		Source, Target string
	}
)

const (
	anyDirs wildcard = "**/"
	anyPath wildcard = "**"
	anyName wildcard = "*"
	anyChar wildcard = "?"
)

func hasWildcard(p string) bool {
	return strings.ContainsAny(p, "*?")
}

func parsePattern(raw string) (*pattern, error) {
	raw = path.Clean(raw)
	if !doublestar.ValidatePattern(raw) {
		return nil, fmt.Errorf("invalid wildcard pattern %q", raw)
	}
	p := &pattern{raw: raw}

	var lit strings.Builder
	for i := 0; i < len(raw); i++ {
		switch {
		case strings.HasPrefix(raw[i:], string(anyDirs)):
			p.parts = append(p.parts, lit.String())
			lit.Reset()
			p.wildcards = append(p.wildcards, anyDirs)
			i += 2
		case strings.HasPrefix(raw[i:], string(anyPath)):
			p.parts = append(p.parts, lit.String())
			lit.Reset()
			p.wildcards = append(p.wildcards, anyPath)
			i++
		case raw[i] == '*':
			p.parts = append(p.parts, lit.String())
			lit.Reset()
			p.wildcards = append(p.wildcards, anyName)
		case raw[i] == '?':
			p.parts = append(p.parts, lit.String())
			lit.Reset()
			p.wildcards = append(p.wildcards, anyChar)
		default:
			lit.WriteByte(raw[i])
		}
	}
	p.parts = append(p.parts, lit.String())

	first := strings.IndexAny(raw, "*?")
	if first < 0 {
		p.base = path.Dir(raw)
		p.rel = path.Base(raw)
		return p, nil
	}
	slash := strings.LastIndex(raw[:first], "/")
	if slash <= 0 {
		p.base = "/"
		p.rel = strings.TrimPrefix(raw, "/")
	} else {
		p.base = raw[:slash]
		p.rel = raw[slash+1:]
	}
	return p, nil
}

// regexp returns an anchored expression capturing each wildcard.
func (p *pattern) regexp() *regexp.Regexp {
	var b strings.Builder
	b.WriteByte('^')
	for i, w := range p.wildcards {
		b.WriteString(regexp.QuoteMeta(p.parts[i]))
		switch w {
		case anyDirs:
			b.WriteString("((?:.*/)?)")
		case anyPath:
			b.WriteString("(.*)")
		case anyName:
			b.WriteString("([^/]*)")
		case anyChar:
			b.WriteString("([^/])")
		}
	}
	b.WriteString(regexp.QuoteMeta(p.parts[len(p.parts)-1]))
	b.WriteByte('$')
	return regexp.MustCompile(b.String())
}

// fill substitutes captures for wildcards in order.
func (p *pattern) fill(captures []string) string {
	var b strings.Builder
	for i := range p.wildcards {
		b.WriteString(p.parts[i])
		b.WriteString(captures[i])
	}
	b.WriteString(p.parts[len(p.parts)-1])
	return path.Clean(b.String())
}

// compatible reports whether q uses the same wildcards as p.
func (p *pattern) compatible(q *pattern) bool {
	if len(p.wildcards) != len(q.wildcards) {
		return false
	}
	for i := range p.wildcards {
		if p.wildcards[i] != q.wildcards[i] {
			return false
		}
	}
	return true
}

type match struct {
	// path is the slash-separated path spelled with p's base.
	path string
	file *fsitem.FileItem
}

// matches returns the files matching p, in walk order. Enumeration goes
// through cache so repeated rules share one directory listing.
func (p *pattern) matches(cache *fsitem.Cache) []match {
	base := cache.GetDirectory(filepath.FromSlash(p.base))
	if !base.Exists() {
		return nil
	}
	depth := strings.Count(p.rel, "/")
	if strings.Contains(p.rel, string(anyPath)) {
		depth = -1
	}
	var out []match
	base.VisitFiles(depth, nil, func(rel string, f *fsitem.FileItem) {
		if ok, _ := doublestar.Match(p.rel, rel); ok {
			out = append(out, match{path: path.Join(p.base, rel), file: f})
		}
	})
	return out
}

// Error implements the error interface.
func (e *PatternMismatchError) Error() string {
	return fmt.Sprintf("source pattern %q and target pattern %q must use the same wildcards in the same order", e.Source, e.Target)
}

// Unwrap returns ErrPatternMismatch for errors.Is() compatibility.
func (e *PatternMismatchError) Unwrap() error { return ErrPatternMismatch }
