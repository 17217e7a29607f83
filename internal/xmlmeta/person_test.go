package xmlmeta

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"curator/internal/library"
)

const sampleDescriptor = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<Item>
  <LocalTitle>  Jane Doe </LocalTitle>
  <SortTitle>Doe, Jane</SortTitle>
  <Overview>Actress and director.</Overview>
  <PremiereDate>1970-02-03</PremiereDate>
  <EndDate>2020-11-12T00:00:00Z</EndDate>
  <PlaceOfBirth>Lyon, France</PlaceOfBirth>
  <Genres>
    <Genre>drama</Genre>
    <Genre>Comedy|Drama</Genre>
  </Genres>
  <Tags><Tag>favorite</Tag></Tags>
  <IMDB>nm0000001</IMDB>
  <TMDbId>42</TMDbId>
  <Unknown><Nested>ignored</Nested></Unknown>
  <Website>https://example.com</Website>
</Item>`

func TestDecodePersonReadsFields(t *testing.T) {
	md, err := DecodePerson(context.Background(), strings.NewReader(sampleDescriptor))
	if err != nil {
		t.Fatalf("DecodePerson: %v", err)
	}
	if md.Name != "Jane Doe" {
		t.Fatalf("unexpected name %q", md.Name)
	}
	if md.SortName != "Doe, Jane" || md.Overview != "Actress and director." || md.PlaceOfBirth != "Lyon, France" {
		t.Fatalf("unexpected text fields: %+v", md)
	}
	if md.BirthDate == nil || !md.BirthDate.Equal(time.Date(1970, 2, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected birth date %v", md.BirthDate)
	}
	if md.DeathDate == nil || md.DeathDate.Year() != 2020 {
		t.Fatalf("unexpected death date %v", md.DeathDate)
	}
	if md.BirthYear != 1970 {
		t.Fatalf("expected birth year derived from date, got %d", md.BirthYear)
	}
	if got := strings.Join(md.Genres, ","); got != "Drama,Comedy" {
		t.Fatalf("unexpected genres %q", got)
	}
	if len(md.Tags) != 1 || md.Tags[0] != "favorite" {
		t.Fatalf("unexpected tags %v", md.Tags)
	}
	if md.IMDbID != "nm0000001" || md.TMDbID != "42" || md.Website != "https://example.com" {
		t.Fatalf("unexpected provider ids: %+v", md)
	}
}

func TestDecodePersonNormalizesUnicode(t *testing.T) {
	// "e" followed by a combining acute accent.
	doc := "<Item><Name>Rene\u0301e</Name></Item>"
	md, err := DecodePerson(context.Background(), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodePerson: %v", err)
	}
	if md.Name != "Ren\u00e9e" {
		t.Fatalf("expected NFC name, got %q", md.Name)
	}
}

func TestDecodePersonTranscodesLegacyCharset(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="windows-1252"?><Item><Name>Zo`)
	buf.WriteByte(0xEB) // ë in windows-1252
	buf.WriteString(`</Name></Item>`)

	md, err := DecodePerson(context.Background(), &buf)
	if err != nil {
		t.Fatalf("DecodePerson: %v", err)
	}
	if md.Name != "Zoë" {
		t.Fatalf("expected transcoded name, got %q", md.Name)
	}
}

func TestDecodePersonRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"wrong root":   "<Movie><Name>x</Name></Movie>",
		"unterminated": "<Item><Name>x</Name>",
		"bad nesting":  "<Item><Name>x</Overview></Item>",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePerson(context.Background(), strings.NewReader(doc))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestDecodePersonIgnoresBadDates(t *testing.T) {
	md, err := DecodePerson(context.Background(), strings.NewReader("<Item><PremiereDate>sometime</PremiereDate><ProductionYear>1950</ProductionYear></Item>"))
	if err != nil {
		t.Fatalf("DecodePerson: %v", err)
	}
	if md.BirthDate != nil {
		t.Fatalf("expected no birth date, got %v", md.BirthDate)
	}
	if md.BirthYear != 1950 {
		t.Fatalf("expected production year, got %d", md.BirthYear)
	}
}

func TestDecodePersonInlinePipeGenres(t *testing.T) {
	md, err := DecodePerson(context.Background(), strings.NewReader("<Item><Genres>drama|science fiction|Drama</Genres></Item>"))
	if err != nil {
		t.Fatalf("DecodePerson: %v", err)
	}
	if got := strings.Join(md.Genres, ","); got != "Drama,Science Fiction" {
		t.Fatalf("unexpected genres %q", got)
	}
}

func TestParseHonoursCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "person.xml")
	if err := os.WriteFile(path, []byte(sampleDescriptor), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewPersonParser().Parse(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseReturnsPersonMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "person.xml")
	if err := os.WriteFile(path, []byte(sampleDescriptor), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	md, err := NewPersonParser().Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	person, ok := md.(library.PersonMetadata)
	if !ok {
		t.Fatalf("expected PersonMetadata, got %T", md)
	}
	if person.Name != "Jane Doe" {
		t.Fatalf("unexpected name %q", person.Name)
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := NewPersonParser().Parse(context.Background(), filepath.Join(t.TempDir(), "nope.xml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
