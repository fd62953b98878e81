package scootblog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Row failure reason reported when a well-formed row fails downstream.
const (
	SkipMalformedRow = "malformed_row"
	SkipStorageError = "storage_error"
)

// RowFailure records one skipped row and why it was skipped.
type RowFailure struct {
	Line   int    `json:"line"`
	Title  string `json:"title,omitempty"`
	Reason string `json:"reason"`
}

// ImportReport accumulates per-row outcomes of one batch import.
type ImportReport struct {
	Inserted int          `json:"inserted"`
	Updated  int          `json:"updated"`
	Skipped  int          `json:"skipped"`
	Failures []RowFailure `json:"failures,omitempty"`
}

func (r *ImportReport) skip(line int, title, reason string) {
	r.Skipped++
	r.Failures = append(r.Failures, RowFailure{Line: line, Title: title, Reason: reason})
}

// Importer streams a CSV of blog rows into the store, upserting by slug.
// Rows are processed strictly in source order, so the last of two same-slug
// rows in one file wins. A failing row never aborts the batch.
type Importer struct {
	store *Store
	norm  *Normalizer
	log   zerolog.Logger
}

// NewImporter wires an Importer to the given store and normalizer.
func NewImporter(store *Store, norm *Normalizer, log zerolog.Logger) *Importer {
	return &Importer{store: store, norm: norm, log: log}
}

// ImportFile opens path and imports it. An unreadable file fails the whole
// batch with zero rows processed.
func (im *Importer) ImportFile(ctx context.Context, path string) (ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportReport{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads CSV rows from r and upserts each normalized record. The first
// row must be a header naming the record attributes; unrecognized columns are
// ignored. The returned report counts inserted, updated, and skipped rows.
func (im *Importer) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	var report ImportReport

	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return report, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.Reader recovers from per-record parse errors; treat the
			// broken row like any other skipped row and keep streaming.
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				report.skip(pe.Line, "", SkipMalformedRow)
				continue
			}
			return report, fmt.Errorf("read csv: %w", err)
		}
		// Quoted fields can span lines, so record indexes drift from file
		// positions; FieldPos gives the physical line the record starts on.
		line, _ := cr.FieldPos(0)

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}

		post, err := im.norm.Normalize(row)
		if err != nil {
			var skip *SkipError
			if errors.As(err, &skip) {
				report.skip(line, strings.TrimSpace(row["title"]), skip.Reason)
				continue
			}
			return report, err
		}

		_, inserted, err := im.store.Upsert(ctx, post)
		if err != nil {
			// A single malformed downstream write must not abort a
			// multi-hundred-row import.
			im.log.Error().Err(err).Str("title", post.Title).Msg("upsert failed, skipping row")
			report.skip(line, post.Title, SkipStorageError)
			continue
		}
		if inserted {
			report.Inserted++
		} else {
			report.Updated++
		}
	}

	im.log.Info().
		Int("inserted", report.Inserted).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Msg("csv import completed")
	return report, nil
}

// skipBOM strips a UTF-8 byte order mark so Windows-exported files don't
// corrupt the first header name.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err == nil && bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	return br
}

// handleImportCSV accepts a multipart CSV upload, saves it to the uploads
// directory under a timestamp-prefixed name, and runs the batch importer.
// The per-row report is returned to the caller.
func (a *App) handleImportCSV(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Please select a CSV file to upload")
	}
	if file.Size > a.Config.MaxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "File too large")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(a.Config.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	path := filepath.Join(a.Config.UploadsDir, timestampedName(file.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save csv: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("save csv: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("save csv: %w", err)
	}

	report, err := a.Importer.ImportFile(c.Request().Context(), path)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Error importing blogs: "+err.Error())
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, echo.Map{"success": true, "report": report})
}

// handleImportStatus reports total and active record counts.
func (a *App) handleImportStatus(c echo.Context) error {
	ctx := c.Request().Context()
	total, err := a.Store.Count(ctx, ListFilter{})
	if err != nil {
		return err
	}
	active := true
	activeCount, err := a.Store.Count(ctx, ListFilter{Active: &active})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"totalBlogs":  total,
		"activeBlogs": activeCount,
		"message":     fmt.Sprintf("Total blogs: %d, Active blogs: %d", total, activeCount),
	})
}
