package scootblog

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
)

// Image describes one uploaded image file.
type Image struct {
	Filename     string `json:"filename"`
	URL          string `json:"url"`
	OriginalName string `json:"originalName,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Size         int    `json:"size,omitempty"`
	UploadedAt   string `json:"uploadedAt,omitempty"`
}

// processImage decodes an image from src, resizes it to maxImageWidth if
// wider, and re-encodes it as JPEG. Returns metadata and the encoded bytes.
func processImage(src io.Reader, originalName string) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	filename := timestampedName(slugifyFilename(originalName) + ".jpg")

	return Image{
		Filename:     filename,
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   time.Now().UTC().Format(time.RFC3339),
	}, buf.Bytes(), nil
}

// timestampedName prefixes a filename with the upload instant in
// milliseconds. The timestamp keeps concurrent uploads from clobbering each
// other and the file lands on disk before any record references it.
func timestampedName(original string) string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(original))
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return strings.Trim(Slugify(base), "-")
}

func (a *App) imageURL(filename string) string {
	return "/" + filepath.ToSlash(filepath.Join(a.Config.UploadsDir, filename))
}

// handleImageUpload accepts a multipart image, processes it, and writes it
// into the uploads directory. The caller gets back the public URL to embed
// in a record.
func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > a.Config.MaxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "File too large")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(src, file.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid image: "+err.Error())
	}

	if err := os.MkdirAll(a.Config.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.Config.UploadsDir, img.Filename), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	img.URL = a.imageURL(img.Filename)

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "image": img})
}

// handleImageList returns the uploaded image files, newest first.
func (a *App) handleImageList(c echo.Context) error {
	entries, err := os.ReadDir(a.Config.UploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusOK, echo.Map{"images": []Image{}})
		}
		return err
	}
	images := make([]Image, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		images = append(images, Image{
			Filename: e.Name(),
			URL:      a.imageURL(e.Name()),
		})
	}
	// Timestamp-prefixed names sort chronologically.
	sort.Slice(images, func(i, j int) bool { return images[i].Filename > images[j].Filename })
	return c.JSON(http.StatusOK, echo.Map{"images": images})
}

// handleImageDelete removes an uploaded image file.
func (a *App) handleImageDelete(c echo.Context) error {
	filename := filepath.Base(c.Param("filename"))
	if filename == "" || filename == "." {
		return echo.NewHTTPError(http.StatusBadRequest, "Filename required")
	}
	path := filepath.Join(a.Config.UploadsDir, filename)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
