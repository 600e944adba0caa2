package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRasterizer struct {
	img image.Image
	err error
}

func (f *fakeRasterizer) Render(ctx context.Context, path string, page int, scale float64) (image.Image, error) {
	return f.img, f.err
}

type fakeEngine struct {
	onRecognize func(ctx context.Context, img image.Image) (string, error)
}

func (f *fakeEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f.onRecognize(ctx, img)
}

func whitePage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestMedianFilter_RemovesIsolatedSpeckle(t *testing.T) {
	img := whitePage(5, 5)
	img.SetGray(2, 2, color.Gray{Y: 0})

	out := medianFilter3(img)

	assert.Equal(t, uint8(255), out.GrayAt(2, 2).Y)
	assert.Equal(t, img.Bounds().Size(), out.Bounds().Size())
}

func TestMedianFilter_KeepsSolidStroke(t *testing.T) {
	img := whitePage(7, 7)
	for y := 0; y < 7; y++ {
		for x := 2; x <= 4; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}

	out := medianFilter3(img)

	assert.Equal(t, uint8(0), out.GrayAt(3, 3).Y)
}

func TestPreprocess_ReturnsGray(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 10, 8))
	out := Preprocess(rgba)
	assert.Equal(t, 10, out.Bounds().Dx())
	assert.Equal(t, 8, out.Bounds().Dy())
}

func TestTesseractEngine_Args(t *testing.T) {
	e := NewTesseractEngine("", "")
	assert.Equal(t, []string{"stdin", "stdout", "-l", "eng", "--oem", "3", "--psm", "6"}, e.Args())
}

func TestEngines_MissingBinary(t *testing.T) {
	_, err := NewTesseractEngine("definitely-not-tesseract", "eng").Recognize(context.Background(), whitePage(2, 2))
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	_, err = NewPopplerRasterizer("definitely-not-pdftoppm").Render(context.Background(), "x.pdf", 1, 2)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestService_PageText(t *testing.T) {
	svc := NewService(&fakeRasterizer{img: whitePage(4, 4)}, &fakeEngine{
		onRecognize: func(ctx context.Context, img image.Image) (string, error) {
			_, isGray := img.(*image.Gray)
			assert.True(t, isGray)
			return "recognised words on the page", nil
		},
	}, 2, time.Second)

	text, err := svc.PageText(context.Background(), "scan.pdf", 3)
	require.NoError(t, err)
	assert.Equal(t, "recognised words on the page", text)
}

func TestService_RenderFailure(t *testing.T) {
	svc := NewService(&fakeRasterizer{err: errors.New("corrupt page")}, &fakeEngine{}, 2, time.Second)
	_, err := svc.PageText(context.Background(), "scan.pdf", 1)
	assert.EqualError(t, err, "corrupt page")
}

func TestService_Timeout(t *testing.T) {
	svc := NewService(&fakeRasterizer{img: whitePage(2, 2)}, &fakeEngine{
		onRecognize: func(ctx context.Context, img image.Image) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}, 2, 20*time.Millisecond)

	_, err := svc.PageText(context.Background(), "scan.pdf", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
