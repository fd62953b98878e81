package scootblog

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func setupTestImporter(t *testing.T) (*Importer, *Store) {
	t.Helper()
	s := setupTestStore(t)
	im := NewImporter(s, NewNormalizer("https://example.com", zerolog.Nop()), zerolog.Nop())
	return im, s
}

func TestImportInsertsRows(t *testing.T) {
	im, s := setupTestImporter(t)
	ctx := context.Background()

	csv := `title,slug,excerpt,content,category,isActive,publishedDate
First Post,first-post,Summary one,Body one,Reviews,true,2024-01-10
Second Post,,Summary two,Body two,,TRUE,2024-01-11
Third Post,third-post,Summary three,Body three,Guides,false,2024-01-12
`
	report, err := im.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Inserted != 3 || report.Updated != 0 || report.Skipped != 0 {
		t.Errorf("report = %+v, want 3 inserted", report)
	}

	// The slug-less row derives its slug from the title.
	got, err := s.GetBySlug(ctx, "second-post")
	if err != nil {
		t.Fatalf("GetBySlug(second-post) failed: %v", err)
	}
	if got.Category != DefaultCategory {
		t.Errorf("Category = %q, want default %q", got.Category, DefaultCategory)
	}

	// isActive other than "true" means hidden.
	if _, err := s.GetBySlug(ctx, "third-post"); err == nil {
		t.Errorf("third-post should be inactive and not publicly visible")
	}
	third, err := s.GetByID(ctx, mustFindID(t, s, "third-post"))
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if third.IsActive {
		t.Errorf("third-post IsActive = true, want false")
	}
}

func mustFindID(t *testing.T, s *Store, slug string) string {
	t.Helper()
	posts, err := s.List(context.Background(), ListFilter{}, OrderCreated, 0, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p.ID
		}
	}
	t.Fatalf("no post with slug %q", slug)
	return ""
}

func TestImportInvalidSchemaKeepsRow(t *testing.T) {
	im, s := setupTestImporter(t)
	ctx := context.Background()

	csv := `title,blogPostingSchema,isActive
Good Schema,"{""@type"":""BlogPosting""}",true
Bad Schema,"{""@type"": broken",true
No Schema,,true
`
	report, err := im.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Inserted != 3 || report.Skipped != 0 {
		t.Errorf("report = %+v, want all 3 rows inserted", report)
	}

	good, err := s.GetBySlug(ctx, "good-schema")
	if err != nil {
		t.Fatalf("GetBySlug(good-schema) failed: %v", err)
	}
	if good.BlogPostingSchema != `{"@type":"BlogPosting"}` {
		t.Errorf("BlogPostingSchema = %q, want kept", good.BlogPostingSchema)
	}

	bad, err := s.GetByID(ctx, mustFindID(t, s, "bad-schema"))
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if bad.BlogPostingSchema != "" {
		t.Errorf("BlogPostingSchema = %q, want dropped for invalid JSON", bad.BlogPostingSchema)
	}
}

func TestImportDuplicateSlugLastWins(t *testing.T) {
	im, s := setupTestImporter(t)
	ctx := context.Background()

	csv := `title,slug,excerpt
First Version,intro-to-scooters,v1
Second Version,intro-to-scooters,v2
`
	report, err := im.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Inserted != 1 || report.Updated != 1 {
		t.Errorf("report = %+v, want 1 inserted 1 updated", report)
	}

	n, err := s.Count(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1 record for the duplicated slug", n)
	}

	got, err := s.GetByID(ctx, mustFindID(t, s, "intro-to-scooters"))
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Second Version" {
		t.Errorf("Title = %q, want the later row to win", got.Title)
	}
}

func TestImportIdempotent(t *testing.T) {
	im, s := setupTestImporter(t)
	ctx := context.Background()

	csv := `title,slug
Post A,post-a
Post B,post-b
`
	first, err := im.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("first Import failed: %v", err)
	}
	if first.Inserted != 2 {
		t.Fatalf("first report = %+v, want 2 inserted", first)
	}

	second, err := im.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("second Import failed: %v", err)
	}
	if second.Inserted != 0 || second.Updated != 2 {
		t.Errorf("second report = %+v, want 0 inserted 2 updated", second)
	}

	n, err := s.Count(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2 after re-import", n)
	}
}

func TestImportSkipsRowsWithoutTitle(t *testing.T) {
	im, s := setupTestImporter(t)
	ctx := context.Background()

	csv := `title,slug,content
Valid Post,valid-post,body
,only-a-slug,body
,,body
Another Valid,another-valid,body
`
	report, err := im.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Inserted != 2 || report.Skipped != 2 {
		t.Errorf("report = %+v, want 2 inserted 2 skipped", report)
	}
	if len(report.Failures) != 2 {
		t.Fatalf("Failures = %v, want 2 entries", report.Failures)
	}
	if report.Failures[0].Line != 3 || report.Failures[0].Reason != SkipMissingTitle {
		t.Errorf("Failures[0] = %+v, want line 3 %s", report.Failures[0], SkipMissingTitle)
	}
	if report.Failures[1].Line != 4 || report.Failures[1].Reason != SkipMissingSlugAndTitle {
		t.Errorf("Failures[1] = %+v, want line 4 %s", report.Failures[1], SkipMissingSlugAndTitle)
	}

	n, err := s.Count(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestImportMalformedRowSkipped(t *testing.T) {
	im, s := setupTestImporter(t)
	ctx := context.Background()

	csv := `title,slug
Good One,good-one
Good Two,good-two
Broken,"unclosed quote
`
	report, err := im.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", report.Inserted)
	}
	if report.Skipped != 1 || report.Failures[0].Reason != SkipMalformedRow {
		t.Errorf("report = %+v, want 1 row skipped as %s", report, SkipMalformedRow)
	}

	n, err := s.Count(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestImportFailureLineIsPhysical(t *testing.T) {
	im, _ := setupTestImporter(t)

	// The first record's quoted content field spans three physical lines, so
	// the bad row after it sits on line 5 of the file.
	csv := `title,content
Multi Line,"spans
several
lines"
,missing title
`
	report, err := im.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Inserted != 1 || report.Skipped != 1 {
		t.Fatalf("report = %+v, want 1 inserted 1 skipped", report)
	}
	if report.Failures[0].Line != 5 {
		t.Errorf("Failures[0].Line = %d, want physical line 5", report.Failures[0].Line)
	}
	if report.Failures[0].Reason != SkipMissingSlugAndTitle {
		t.Errorf("Failures[0].Reason = %q, want %s", report.Failures[0].Reason, SkipMissingSlugAndTitle)
	}
}

func TestImportStripsBOM(t *testing.T) {
	im, s := setupTestImporter(t)
	ctx := context.Background()

	csv := "\xEF\xBB\xBFtitle,slug,isActive\nBOM Post,bom-post,true\n"
	report, err := im.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Inserted != 1 {
		t.Fatalf("report = %+v, want 1 inserted", report)
	}
	got, err := s.GetBySlug(ctx, "bom-post")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if got.Title != "BOM Post" {
		t.Errorf("Title = %q, want the BOM stripped from the first header", got.Title)
	}
}

func TestImportHeaderOnly(t *testing.T) {
	im, _ := setupTestImporter(t)

	report, err := im.Import(context.Background(), strings.NewReader("title,slug\n"))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Inserted != 0 || report.Updated != 0 || report.Skipped != 0 {
		t.Errorf("report = %+v, want all zero", report)
	}
}

func TestImportEmptyInput(t *testing.T) {
	im, _ := setupTestImporter(t)

	_, err := im.Import(context.Background(), strings.NewReader(""))
	if err == nil {
		t.Errorf("Import of empty input should fail on the missing header")
	}
}

func TestImportFileMissing(t *testing.T) {
	im, _ := setupTestImporter(t)

	report, err := im.ImportFile(context.Background(), "does/not/exist.csv")
	if err == nil {
		t.Fatalf("ImportFile(missing) should fail")
	}
	if report.Inserted != 0 || report.Updated != 0 || report.Skipped != 0 {
		t.Errorf("report = %+v, want zero rows processed", report)
	}
}
