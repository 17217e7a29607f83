// Package xmlmeta decodes person.xml descriptor files into detached person
// metadata.
//
// The grammar follows the MediaBrowser-style <Item> document written next to
// each person folder. Text values are trimmed and NFC-normalized, legacy
// charsets declared in the XML prolog are transcoded, and unknown elements
// are skipped. The parser never touches an entity; callers apply the result.
package xmlmeta
