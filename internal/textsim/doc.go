// Package textsim canonicalizes and compares short free-text snippets.
//
// Normalize is the single canonical form used wherever two texts are
// compared: it lower-cases, drops zero-width joiner/non-joiner marks that
// Telugu input methods scatter through words, replaces a fixed punctuation
// set with spaces and collapses whitespace. It is idempotent.
//
// Similarity is a bigram Dice coefficient over whitespace-stripped strings,
// the measure the duplicate threshold (DuplicateThreshold) is calibrated for.
// Distance is a normalized edit distance between single tokens and backs the
// looser fuzzy matching used for relevance ranking.
package textsim
