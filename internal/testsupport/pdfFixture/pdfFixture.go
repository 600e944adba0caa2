// Package pdfFixture writes small uncompressed PDFs for tests that need a real file on disk.
package pdfFixture

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
)

type Page struct {
	Text     string
	HasImage bool
}

const imageName = "fixture-image"

// Write lays out one Helvetica text line per page. fpdf shares one resource dictionary across
// pages, so once any page has an image every page lists the image XObject.
func Write(path, title, author string, pages []Page) error {
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetCompression(false)
	doc.SetTitle(title, false)
	doc.SetAuthor(author, false)
	doc.SetProducer("docmind fixture", false)
	doc.SetFont("Helvetica", "", 10)

	for _, p := range pages {
		if p.HasImage {
			if err := registerImage(doc); err != nil {
				return err
			}
			break
		}
	}

	for _, p := range pages {
		doc.AddPage()
		if p.HasImage {
			doc.ImageOptions(imageName, 72, 100, 100, 100, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
		if p.Text != "" {
			doc.Text(72, 72, p.Text)
		}
	}
	return doc.OutputFileAndClose(path)
}

func registerImage(doc *fpdf.Fpdf) error {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.SetGray(0, 0, color.Gray{Y: 0x10})

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return err
	}
	doc.RegisterImageOptionsReader(imageName, fpdf.ImageOptions{ImageType: "PNG"}, &buf)
	return doc.Error()
}
