// Package redact scrubs likely secrets from captured source lines before they
// are persisted. Hashes are always computed on the original text, so
// redaction never affects matching.
package redact

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Placeholder replaces every detected secret.
const Placeholder = "REDACTED"

// secretPattern matches token-like runs that are candidates for entropy checks.
var secretPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a candidate to count as
// a secret. Ordinary identifiers stay well below it; API keys sit above 5.0.
const entropyThreshold = 4.5

var (
	detector     *detect.Detector
	detectorOnce sync.Once
)

func getDetector() *detect.Detector {
	detectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		detector = d
	})
	return detector
}

type span struct{ start, end int }

// String replaces secrets in s with Placeholder. A span is redacted when
// either the entropy check or a gitleaks rule flags it.
func String(s string) string {
	spans := append(entropySpans(s), patternSpans(s)...)
	if len(spans) == 0 {
		return s
	}
	return replaceSpans(s, mergeSpans(spans))
}

// Lines applies String to each line, returning a new slice only when
// something changed.
func Lines(lines []string) []string {
	var out []string
	for i, line := range lines {
		r := String(line)
		if r == line && out == nil {
			continue
		}
		if out == nil {
			out = make([]string, len(lines))
			copy(out, lines[:i])
		}
		out[i] = r
	}
	if out == nil {
		return lines
	}
	return out
}

func entropySpans(s string) []span {
	var spans []span
	for _, loc := range secretPattern.FindAllStringIndex(s, -1) {
		if shannonEntropy(s[loc[0]:loc[1]]) > entropyThreshold {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	return spans
}

func patternSpans(s string) []span {
	d := getDetector()
	if d == nil {
		return nil
	}
	var spans []span
	for _, f := range d.DetectString(s) {
		if f.Secret == "" {
			continue
		}
		for from := 0; ; {
			idx := strings.Index(s[from:], f.Secret)
			if idx < 0 {
				break
			}
			start := from + idx
			spans = append(spans, span{start, start + len(f.Secret)})
			from = start + len(f.Secret)
		}
	}
	return spans
}

// mergeSpans sorts spans and joins the ones that overlap or touch.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := []span{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start > last.end {
			merged = append(merged, sp)
			continue
		}
		if sp.end > last.end {
			last.end = sp.end
		}
	}
	return merged
}

func replaceSpans(s string, spans []span) string {
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(s[prev:sp.start])
		b.WriteString(Placeholder)
		prev = sp.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var freq [256]int
	for i := range len(s) {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
