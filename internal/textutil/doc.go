// Package textutil provides fuzzy text matching for entity names.
//
// Names are fingerprinted as character trigram frequency vectors so that
// typos, reordered words, and missing accents still score close to the
// intended name. Cosine similarity compares fingerprints and Suggest ranks
// candidate names for "did you mean" hints.
package textutil
