package render

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// An ImageSink accepts a finished image and stores it under a name.
type ImageSink interface {
	Write(name string, img image.Image) error
}

// FileSink writes images to files. The encoder is picked from the file
// extension; a name without extension gets ".png".
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink. Relative names are resolved against dir; an
// empty dir means the working directory.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Path returns the file a name will be written to.
func (s *FileSink) Path(name string) string {
	if filepath.Ext(name) == "" {
		name += ".png"
	}

	if s.dir != "" && !filepath.IsAbs(name) {
		name = filepath.Join(s.dir, name)
	}

	return name
}

// Write encodes img into the file for name.
func (s *FileSink) Write(name string, img image.Image) error {
	path := s.Path(name)

	encode, err := encoderFor(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = encode(&buf, img)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	err = os.WriteFile(path, buf.Bytes(), 0o644)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

type encoder func(w io.Writer, img image.Image) error

func encoderFor(path string) (encoder, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".png":
		return png.Encode, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
		}, nil
	case ".gif":
		return func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		}, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	case ".pdf":
		return encodePDF, nil
	default:
		return nil, fmt.Errorf("unsupported image format %q", ext)
	}
}

// encodePDF embeds the image as a PNG on a single page of the same size, in
// points.
func encodePDF(w io.Writer, img image.Image) error {
	var raster bytes.Buffer
	err := png.Encode(&raster, img)
	if err != nil {
		return err
	}

	b := img.Bounds()
	width, height := float64(b.Dx()), float64(b.Dy())

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("timeline", opt, &raster)
	pdf.ImageOptions("timeline", 0, 0, width, height, false, opt, 0, "")

	return pdf.Output(w)
}
