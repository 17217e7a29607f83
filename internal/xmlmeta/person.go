package xmlmeta

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"curator/internal/library"
)

// ErrMalformed marks descriptors that could not be interpreted.
var ErrMalformed = errors.New("malformed descriptor")

const rootElement = "Item"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// PersonParser reads person.xml descriptors.
type PersonParser struct{}

// NewPersonParser returns a person descriptor parser.
func NewPersonParser() PersonParser {
	return PersonParser{}
}

// Parse reads path and returns the decoded person metadata.
func (PersonParser) Parse(ctx context.Context, path string) (library.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	md, err := DecodePerson(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return md, nil
}

// DecodePerson decodes a person descriptor from r, checking ctx between
// top-level elements.
func DecodePerson(ctx context.Context, r io.Reader) (library.PersonMetadata, error) {
	var md library.PersonMetadata

	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	root, err := findRoot(dec)
	if err != nil {
		return md, err
	}
	if root.Name.Local != rootElement {
		return md, fmt.Errorf("%w: root element <%s>, want <%s>", ErrMalformed, root.Name.Local, rootElement)
	}

	for {
		if err := ctx.Err(); err != nil {
			return library.PersonMetadata{}, err
		}
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return md, fmt.Errorf("%w: unexpected end of document", ErrMalformed)
			}
			return md, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if err := decodeField(dec, el, &md); err != nil {
				return library.PersonMetadata{}, err
			}
		case xml.EndElement:
			if md.BirthYear == 0 && md.BirthDate != nil {
				md.BirthYear = md.BirthDate.Year()
			}
			return md, nil
		}
	}
}

func findRoot(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, fmt.Errorf("%w: empty document", ErrMalformed)
			}
			return xml.StartElement{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func decodeField(dec *xml.Decoder, el xml.StartElement, md *library.PersonMetadata) error {
	switch el.Name.Local {
	case "LocalTitle", "Name":
		return decodeText(dec, el, &md.Name)
	case "SortTitle":
		return decodeText(dec, el, &md.SortName)
	case "Overview":
		return decodeText(dec, el, &md.Overview)
	case "PlaceOfBirth":
		return decodeText(dec, el, &md.PlaceOfBirth)
	case "IMDB", "IMDB_ID", "IMDbId":
		return decodeText(dec, el, &md.IMDbID)
	case "TMDbId":
		return decodeText(dec, el, &md.TMDbID)
	case "Website":
		return decodeText(dec, el, &md.Website)
	case "PremiereDate", "BirthDate":
		return decodeDate(dec, el, &md.BirthDate)
	case "EndDate", "DeathDate":
		return decodeDate(dec, el, &md.DeathDate)
	case "ProductionYear":
		var raw string
		if err := decodeText(dec, el, &raw); err != nil {
			return err
		}
		if year, err := strconv.Atoi(raw); err == nil && year > 0 {
			md.BirthYear = year
		}
		return nil
	case "Genres":
		values, err := decodeList(dec, el, "Genre")
		if err != nil {
			return err
		}
		md.Genres = mergeUnique(md.Genres, titleCase(values))
		return nil
	case "Genre":
		var value string
		if err := decodeText(dec, el, &value); err != nil {
			return err
		}
		md.Genres = mergeUnique(md.Genres, titleCase(splitPipe(value)))
		return nil
	case "Tags":
		values, err := decodeList(dec, el, "Tag")
		if err != nil {
			return err
		}
		md.Tags = mergeUnique(md.Tags, values)
		return nil
	default:
		if err := dec.Skip(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return nil
	}
}

func decodeText(dec *xml.Decoder, el xml.StartElement, dst *string) error {
	var raw string
	if err := dec.DecodeElement(&raw, &el); err != nil {
		return fmt.Errorf("%w: <%s>: %w", ErrMalformed, el.Name.Local, err)
	}
	if value := cleanText(raw); value != "" {
		*dst = value
	}
	return nil
}

func decodeDate(dec *xml.Decoder, el xml.StartElement, dst **time.Time) error {
	var raw string
	if err := decodeText(dec, el, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			*dst = &utc
			return nil
		}
	}
	// Unparseable dates are dropped rather than failing the whole descriptor.
	return nil
}

func decodeList(dec *xml.Decoder, el xml.StartElement, child string) ([]string, error) {
	var raw struct {
		Text  string `xml:",chardata"`
		Items []struct {
			XMLName xml.Name
			Value   string `xml:",chardata"`
		} `xml:",any"`
	}
	if err := dec.DecodeElement(&raw, &el); err != nil {
		return nil, fmt.Errorf("%w: <%s>: %w", ErrMalformed, el.Name.Local, err)
	}
	// Older writers put a pipe-joined list directly inside the container.
	values := splitPipe(raw.Text)
	for _, item := range raw.Items {
		if item.XMLName.Local != child {
			continue
		}
		values = append(values, splitPipe(item.Value)...)
	}
	return values, nil
}

func cleanText(value string) string {
	return strings.TrimSpace(norm.NFC.String(value))
}

// splitPipe handles the legacy "Drama|Comedy" single-element form.
func splitPipe(value string) []string {
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if cleaned := cleanText(part); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func titleCase(values []string) []string {
	caser := cases.Title(language.Und, cases.NoLower)
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = caser.String(v)
	}
	return out
}

func mergeUnique(existing, values []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(values))
	for _, v := range existing {
		seen[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, v)
	}
	return existing
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported charset %q", ErrMalformed, label)
	}
	return enc.NewDecoder().Reader(input), nil
}
