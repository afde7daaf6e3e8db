package codec

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jpeg", JPEG, false},
		{"JPG", JPEG, false},
		{".png", PNG, false},
		{"gif", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
	require.Equal(t, ".jpg", JPEG.Ext())
	require.Equal(t, ".png", PNG.Ext())
}

func TestIsSupported(t *testing.T) {
	for _, p := range []string{"a.jpg", "b.JPEG", "c.png", "d.bmp", "e.tif", "f.TIFF"} {
		require.True(t, IsSupported(p), p)
	}
	for _, p := range []string{"a.gif", "b.txt", "noext"} {
		require.False(t, IsSupported(p), p)
	}
}

func TestEncodeDecodePNGKeepsAlpha(t *testing.T) {
	src := solid(8, 6, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, EncodeOptions{Format: PNG}))

	img, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
	_, _, _, a := img.At(3, 3).RGBA()
	require.InDelta(t, 128*257, a, 257)
}

func TestEncodeJPEGFlattensOntoBackground(t *testing.T) {
	src := solid(16, 16, color.NRGBA{})
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, EncodeOptions{
		Format:     JPEG,
		Quality:    95,
		Background: color.NRGBA{R: 0, G: 0, B: 255, A: 255},
	}))

	img, err := Decode(&buf)
	require.NoError(t, err)
	r, g, b, _ := img.At(8, 8).RGBA()
	require.Less(t, r>>8, uint32(30))
	require.Less(t, g>>8, uint32(30))
	require.Greater(t, b>>8, uint32(220))
}

func TestEncodeJPEGQualityRange(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 37), G: uint8(y * 91), B: uint8(x * y), A: 255})
		}
	}
	size := func(q int) []byte {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, src, EncodeOptions{Format: JPEG, Quality: q}))
		return buf.Bytes()
	}

	lowest, one, def, top := size(0), size(1), size(DefaultQuality), size(100)
	require.Equal(t, one, lowest)
	require.Less(t, len(lowest), len(def))
	require.Equal(t, top, size(250))
}

func TestEncodeUnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, solid(1, 1, color.NRGBA{A: 255}), EncodeOptions{Format: "gif"})
	require.ErrorIs(t, err, ErrEncode)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not an image")))
	require.ErrorIs(t, err, ErrDecode)
}

func TestOpenAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.png")
	require.NoError(t, Save(path, solid(4, 4, color.NRGBA{R: 200, A: 255}), EncodeOptions{Format: PNG}))

	img, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 4, img.Bounds().Dx())

	bad := filepath.Join(dir, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("xx"), 0o644))
	_, err = Open(bad)
	require.ErrorIs(t, err, ErrDecode)

	_, err = Open(filepath.Join(dir, "missing.png"))
	require.ErrorIs(t, err, ErrDecode)
}
