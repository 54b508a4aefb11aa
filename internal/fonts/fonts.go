// Package fonts picks a font able to render translated text.
package fonts

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/platinummonkey/folio/internal/document"
	"golang.org/x/image/font/gofont/goregular"
)

// ResourceName is the name under which the selected font is registered
const ResourceName = "folio-text"

// candidates lists TrueType fonts with wide script coverage per platform,
// most preferred first.
var candidates = map[string][]string{
	"windows": {
		`C:\Windows\Fonts\simhei.ttf`,
		`C:\Windows\Fonts\arialuni.ttf`,
		`C:\Windows\Fonts\arial.ttf`,
	},
	"darwin": {
		"/Library/Fonts/Arial Unicode.ttf",
		"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
		"/System/Library/Fonts/Supplemental/Arial.ttf",
	},
	"linux": {
		"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
		"/usr/share/fonts/truetype/wqy/wqy-microhei.ttf",
		"/usr/share/fonts/truetype/arphic/uming.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
	},
}

// Candidates returns the font files tried on goos, in order
func Candidates(goos string) []string {
	return candidates[goos]
}

// Selector chooses the font resource
type Selector struct {
	// Override is tried before the platform candidates
	Override string

	// GOOS selects the candidate list, runtime.GOOS when empty
	GOOS string

	exists func(path string) bool
}

// Select returns the first existing candidate, or the built-in Go Regular
// font when none is installed. The built-in font covers Latin, Greek and
// Cyrillic only.
func (s Selector) Select() document.Font {
	exists := s.exists
	if exists == nil {
		exists = fileExists
	}

	goos := s.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	paths := Candidates(goos)
	if s.Override != "" {
		paths = append([]string{s.Override}, paths...)
	}

	for _, p := range paths {
		if exists(p) {
			return document.Font{Name: ResourceName, Path: filepath.Clean(p)}
		}
	}
	return Builtin()
}

// Builtin returns the embedded fallback font
func Builtin() document.Font {
	return document.Font{Name: ResourceName, Data: goregular.TTF}
}

// IsBuiltin reports whether f is the embedded fallback
func IsBuiltin(f document.Font) bool {
	return f.Path == "" && len(f.Data) == len(goregular.TTF)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
