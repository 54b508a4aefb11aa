package pdfdoc

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageBox is the visible size of a page in points
type PageBox struct {
	Width  float64
	Height float64
}

// Info contains information about a PDF file
type Info struct {
	PageCount  int
	PDFVersion string
	FileSize   int64
	Encrypted  bool
	Pages      []PageBox
}

// ReadInfo reads the page count and page boxes of a PDF file
func ReadInfo(pdfPath string) (*Info, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	info := &Info{
		PageCount:  ctx.PageCount,
		PDFVersion: "unknown",
		Encrypted:  ctx.Encrypt != nil,
		Pages:      make([]PageBox, 0, ctx.PageCount),
	}
	if ctx.HeaderVersion != nil {
		info.PDFVersion = ctx.HeaderVersion.String()
	}
	if stat, err := os.Stat(pdfPath); err == nil {
		info.FileSize = stat.Size()
	}

	for pageNum := 1; pageNum <= ctx.PageCount; pageNum++ {
		_, _, inheritedAttrs, err := ctx.PageDict(pageNum, false)
		if err != nil {
			return nil, fmt.Errorf("failed to get page dictionary for page %d: %w", pageNum, err)
		}
		if inheritedAttrs == nil || inheritedAttrs.MediaBox == nil {
			return nil, fmt.Errorf("page %d has no media box", pageNum)
		}
		info.Pages = append(info.Pages, PageBox{
			Width:  inheritedAttrs.MediaBox.Width(),
			Height: inheritedAttrs.MediaBox.Height(),
		})
	}

	return info, nil
}

// Validate checks that pdfPath exists and parses as a PDF
func Validate(pdfPath string) error {
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		return fmt.Errorf("PDF file does not exist: %s", pdfPath)
	}
	if _, err := api.ReadContextFile(pdfPath); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	return nil
}

// optimize rewrites inputPath to outputPath without unreferenced objects
func optimize(inputPath, outputPath string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.OptimizeFile(inputPath, outputPath, conf); err != nil {
		return fmt.Errorf("failed to optimize PDF: %w", err)
	}
	return nil
}
