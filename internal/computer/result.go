// Copyright 2025 Tomas Cupr

package computer

// Result is the normalized outcome of a single action. Output and Error
// carry the captured streams of the underlying command; Image is raw PNG
// bytes when a screenshot was taken, either as the action itself or as the
// trailing side effect. Encoding for transport (base64 data URIs) is the
// adapter's concern.
type Result struct {
	Output string
	Error  string
	Image  []byte
}
