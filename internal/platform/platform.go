// Package platform defines the supported content platforms, their URL
// patterns and the extractor contract shared by all of them.
package platform

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Platform identifies one supported content source.
type Platform string

const (
	YouTube         Platform = "YouTube"
	TelegramPublic  Platform = "TelegramPublic"
	TelegramPrivate Platform = "TelegramPrivate"
	Dailymotion     Platform = "Dailymotion"
	Okru            Platform = "Okru"
)

// All returns every supported platform, public ones first.
func All() []Platform {
	return []Platform{YouTube, TelegramPublic, Dailymotion, Okru, TelegramPrivate}
}

// Parse converts a platform selection token into a Platform.
func Parse(s string) (Platform, error) {
	for _, p := range All() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform: %q", s)
}

// RequiresLogin reports whether extraction for this platform needs an
// authorized user session.
func (p Platform) RequiresLogin() bool {
	return p == TelegramPrivate
}

// patterns maps every platform to its single recognition pattern. The
// mapping is static and total; a line is only ever tested against the
// pattern of the platform the user selected.
var patterns = map[Platform]*regexp.Regexp{
	YouTube:         regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/(watch\?v=|shorts/|live/)|youtu\.be/[\w\-]+)`),
	TelegramPublic:  regexp.MustCompile(`^(https?://)?t\.me/[\w_]+/\d+`),
	TelegramPrivate: regexp.MustCompile(`^(https?://)?t\.me/c/\d+/\d+`),
	Dailymotion:     regexp.MustCompile(`^(https?://)?(www\.)?dailymotion\.com/video/[\w\d]+`),
	Okru:            regexp.MustCompile(`^(https?://)?(www\.)?ok\.ru/video/\d+`),
}

// Classify tests one raw input line against the selected platform's
// pattern. The line is trimmed first; an empty line is invalid. A line
// matching a different platform's pattern is still invalid here; it is
// never reclassified.
func Classify(p Platform, rawLine string) (valid bool, normalized string) {
	line := strings.TrimSpace(rawLine)
	if line == "" {
		return false, ""
	}
	re, ok := patterns[p]
	if !ok {
		return false, ""
	}
	if !re.MatchString(line) {
		return false, ""
	}
	return true, line
}

// Extractor turns a list of validated URLs into one result per URL.
// Implementations never let an error escape: every per-URL problem is
// converted into a Failure result so sibling URLs keep processing.
type Extractor interface {
	// Platform returns the platform this extractor serves.
	Platform() Platform

	// Extract produces results for the given URLs, in input order. The
	// YouTube extractor is the documented exception to the
	// one-output-per-input rule; see its package doc.
	Extract(ctx context.Context, urls []string) []Result
}

// Registry holds the extractor for each platform.
type Registry struct {
	extractors map[Platform]Extractor
}

// NewRegistry creates an empty platform registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[Platform]Extractor)}
}

// Register adds an extractor, replacing any previous one for the same
// platform.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Platform()] = e
}

// Extractor returns the extractor registered for the platform, or nil.
func (r *Registry) Extractor(p Platform) Extractor {
	return r.extractors[p]
}

// ListPlatforms returns the names of all registered platforms.
func (r *Registry) ListPlatforms() []string {
	names := make([]string, 0, len(r.extractors))
	for _, p := range All() {
		if _, ok := r.extractors[p]; ok {
			names = append(names, string(p))
		}
	}
	return names
}
