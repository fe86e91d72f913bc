// Package pdf lays out a directory of screenshots as a PDF, one page per image,
// every page exactly as large as its image.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/pagecapture/internal/source"
)

var (
	ErrNoImages = errors.New("no image files found")
	ErrWrite    = errors.New("unable to write PDF")
)

const creator = "pagecapture"

// Assembler builds PDFs out of image directories.
type Assembler struct {
	log     logrus.FieldLogger
	workers int
}

func NewAssembler(log logrus.FieldLogger) *Assembler {
	return &Assembler{
		log:     log,
		workers: runtime.NumCPU(),
	}
}

// WithWorkers bounds how many pages are decoded at once.
func (a *Assembler) WithWorkers(n int) *Assembler {
	if n < 1 {
		n = 1
	}
	a.workers = n
	return a
}

// Create writes every image of dir, oldest first, to output. When dir holds no
// images output is left untouched and ErrNoImages is returned.
func (a *Assembler) Create(dir, output string) (string, error) {
	images, err := source.NewImageSource(dir)
	if err != nil {
		return "", fmt.Errorf("unable to list images in %s: %w", dir, err)
	}
	if images.PageCount() == 0 {
		a.log.WithField("dir", dir).Info(ErrNoImages.Error())
		return "", fmt.Errorf("%w in %s", ErrNoImages, dir)
	}

	doc := newDocument()
	added, err := a.addPages(doc, images, "img")
	if err != nil {
		return "", err
	}
	if added == 0 {
		return "", fmt.Errorf("%w in %s: none could be decoded", ErrNoImages, dir)
	}

	if err := writeDocument(doc, output); err != nil {
		return "", err
	}
	a.log.WithFields(logrus.Fields{"path": output, "pages": added}).Info("PDF saved")
	return output, nil
}

// Append adds the images of dir after the pages already in existing.
// Existing pages are rasterized and carried over. With no images in dir
// existing is returned unchanged.
func (a *Assembler) Append(dir, existing string) (string, error) {
	images, err := source.NewImageSource(dir)
	if err != nil {
		return "", fmt.Errorf("unable to list images in %s: %w", dir, err)
	}
	if images.PageCount() == 0 {
		a.log.WithField("dir", dir).Info(ErrNoImages.Error())
		return existing, nil
	}

	doc := newDocument()
	kept := 0
	if prior, err := source.NewFitzPDFSource(existing); err != nil {
		a.log.WithField("path", existing).WithError(err).Warn("unable to read existing PDF, starting a new one")
	} else {
		kept, err = a.addPages(doc, prior, "prior")
		prior.Close()
		if err != nil {
			return "", err
		}
	}

	added, err := a.addPages(doc, images, "img")
	if err != nil {
		return "", err
	}
	if kept+added == 0 {
		return existing, fmt.Errorf("%w in %s: none could be decoded", ErrNoImages, dir)
	}

	if err := writeDocument(doc, existing); err != nil {
		return "", err
	}
	a.log.WithFields(logrus.Fields{"path": existing, "kept": kept, "pages": added}).Info("PDF updated")
	return existing, nil
}

type page struct {
	ok        bool
	width     float64
	height    float64
	imageType string
	data      []byte
}

// addPages prepares pages in parallel batches and adds them in source order.
// Pages that cannot be decoded are logged and skipped.
func (a *Assembler) addPages(doc *fpdf.Fpdf, src source.Source, prefix string) (int, error) {
	count := src.PageCount()
	added := 0

	for start := 0; start < count; start += a.workers {
		end := start + a.workers
		if end > count {
			end = count
		}

		batch := make([]page, end-start)
		var g errgroup.Group
		g.SetLimit(a.workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				p, err := preparePage(src, i)
				if err != nil {
					a.log.WithField("page", i).WithError(err).Warn("skipping page")
					return nil
				}
				batch[i-start] = p
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return added, err
		}

		for j, p := range batch {
			if !p.ok {
				continue
			}
			name := fmt.Sprintf("%s_%d", prefix, start+j)
			opts := fpdf.ImageOptions{ImageType: p.imageType}
			doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.data))
			doc.AddPageFormat("P", fpdf.SizeType{Wd: p.width, Ht: p.height})
			doc.ImageOptions(name, 0, 0, p.width, p.height, false, opts, 0, "")
			if err := doc.Error(); err != nil {
				return added, fmt.Errorf("%w: page %d: %w", ErrWrite, start+j, err)
			}
			added++
		}
	}
	return added, nil
}

type pather interface {
	Path(index int) string
}

// preparePage returns the bytes fpdf embeds for page index. JPEG files are
// embedded as they are, everything else is re-encoded as 8-bit PNG.
func preparePage(src source.Source, index int) (page, error) {
	width, height, err := src.GetPageDimensions(index)
	if err != nil {
		return page{}, err
	}
	if width <= 0 || height <= 0 {
		return page{}, fmt.Errorf("page %d has no area", index)
	}

	if ps, ok := src.(pather); ok {
		path := ps.Path(index)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jpg", ".jpeg":
			data, err := os.ReadFile(path)
			if err != nil {
				return page{}, err
			}
			return page{ok: true, width: width, height: height, imageType: "JPG", data: data}, nil
		}
	}

	img, err := src.RenderPage(index, source.PointsDPI)
	if err != nil {
		return page{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, toNRGBA(img)); err != nil {
		return page{}, fmt.Errorf("unable to encode page %d: %w", index, err)
	}
	return page{ok: true, width: width, height: height, imageType: "PNG", data: buf.Bytes()}, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func newDocument() *fpdf.Fpdf {
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreator(creator, true)
	return doc
}

// writeDocument replaces output with a rename, an existing file is never left half written.
func writeDocument(doc *fpdf.Fpdf, output string) error {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".pagecapture-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	if err := doc.Output(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
