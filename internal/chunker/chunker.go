// Package chunker splits long text into translation units by estimated size.
//
// Splitting happens on line boundaries only. A line that alone exceeds the
// budget still becomes a single chunk; the provider decides whether it can
// cope with it.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Estimator returns the estimated size of a text in provider units.
type Estimator func(text string) int

// TokenEstimate approximates model tokens as one token per three characters,
// a conservative average across CJK and Latin scripts.
func TokenEstimate(text string) int {
	return utf8.RuneCountInString(text) / 3
}

// CharEstimate counts characters, for APIs that limit request length.
func CharEstimate(text string) int {
	return utf8.RuneCountInString(text)
}

// Capacity describes how much text a provider accepts per request.
type Capacity struct {
	// Limit is the provider's capacity in Estimate units (context length, max chars)
	Limit int

	// Estimate measures text in the same units as Limit
	Estimate Estimator

	// Threshold is the fraction of Limit above which text must be chunked
	Threshold float64

	// ChunkFraction is the fraction of Limit each chunk may use. The rest is
	// headroom for the prompt template and the response.
	ChunkFraction float64
}

// TokenCapacity returns the capacity of a local model with the given context length.
func TokenCapacity(contextLength int) Capacity {
	return Capacity{
		Limit:         contextLength,
		Estimate:      TokenEstimate,
		Threshold:     0.8,
		ChunkFraction: 0.6,
	}
}

// CharCapacity returns the capacity of an API limited to maxChars per request.
func CharCapacity(maxChars int) Capacity {
	return Capacity{
		Limit:         maxChars,
		Estimate:      CharEstimate,
		Threshold:     1.0,
		ChunkFraction: 0.8,
	}
}

func (c Capacity) estimate(text string) int {
	if c.Estimate == nil {
		return CharEstimate(text)
	}
	return c.Estimate(text)
}

// Unbounded reports whether the capacity places no limit on text size.
func (c Capacity) Unbounded() bool {
	return c.Limit <= 0
}

// Exceeds reports whether text is too large for a single request.
func (c Capacity) Exceeds(text string) bool {
	if c.Unbounded() {
		return false
	}
	return float64(c.estimate(text)) > c.Threshold*float64(c.Limit)
}

// Budget is the maximum estimated size of one chunk.
func (c Capacity) Budget() int {
	return int(c.ChunkFraction * float64(c.Limit))
}

// Split breaks text into chunks for this capacity.
func (c Capacity) Split(text string) []string {
	est := c.Estimate
	if est == nil {
		est = CharEstimate
	}
	return Split(text, c.Budget(), est)
}

// Split walks text line by line and groups lines into chunks whose estimated
// size stays within budget. Chunks are trimmed and never empty.
func Split(text string, budget int, estimate Estimator) []string {
	var (
		chunks  []string
		current strings.Builder
	)

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if estimate(current.String()+line) > budget {
			flush()
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()

	return chunks
}
