// Package layers decomposes a narrative into the five wisdom layers.
//
// Classification is a deterministic heuristic: ordered regexp groups per layer,
// a single pass over paragraphs, then per-layer fallbacks and a neutral phrase
// as the last resort. It never fails and never returns an empty layer.
package layers
