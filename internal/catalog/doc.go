// Package catalog persists library entities and their refresh history in
// SQLite.
//
// The Store records each entity's metadata directory, the last metadata
// parsed from its descriptor, and the instant it was last refreshed, plus
// one history row per refresh attempt. Content and the refresh marker are
// written by a single statement so a reader never sees one without the
// other.
//
// Schema changes bump the version in schema.go; users delete the catalog to
// adopt the new schema, and the next scan repopulates it from disk.
package catalog
