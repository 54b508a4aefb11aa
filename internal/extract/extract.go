// Package extract turns a page's raw regions into ordered text blocks.
//
// Blocks are ordered by top edge, then left edge. Multi-column layouts can
// come out interleaved; that is not corrected here.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/platinummonkey/folio/internal/document"
)

// Blocks returns the non-empty text blocks of page in reading order.
// Image and vector regions are skipped.
func Blocks(page document.Page) ([]document.TextBlock, error) {
	raw, err := page.RawBlocks()
	if err != nil {
		return nil, fmt.Errorf("failed to read blocks of page %d: %w", page.Index(), err)
	}

	var blocks []document.TextBlock
	for _, rb := range raw {
		if rb.Kind != document.KindText {
			continue
		}

		lines := make([]string, 0, len(rb.Lines))
		var sizes []float64
		for _, line := range rb.Lines {
			lines = append(lines, line.Text())
			for _, span := range line.Spans {
				sizes = append(sizes, span.Size)
			}
		}

		text := strings.TrimSpace(strings.Join(lines, "\n"))
		if text == "" {
			continue
		}

		blocks = append(blocks, document.TextBlock{
			Rect:  rb.Rect,
			Text:  text,
			Sizes: sizes,
		})
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Rect.Y0 != blocks[j].Rect.Y0 {
			return blocks[i].Rect.Y0 < blocks[j].Rect.Y0
		}
		return blocks[i].Rect.X0 < blocks[j].Rect.X0
	})

	return blocks, nil
}

// DominantSize returns the most frequent size, preferring the one seen first
// on ties. It returns 0 for no sizes.
func DominantSize(sizes []float64) float64 {
	counts := make(map[float64]int, len(sizes))
	var (
		best      float64
		bestCount int
	)
	for _, s := range sizes {
		counts[s]++
	}
	// walk in original order so the first-seen size wins ties
	for _, s := range sizes {
		if c := counts[s]; c > bestCount {
			best, bestCount = s, c
		}
	}
	return best
}
