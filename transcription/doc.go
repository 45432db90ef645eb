// Package transcription holds the provider-neutral transcript model and the
// pure functions that turn a supplier payload into stored outputs.
//
// Suppliers decode their JSON into a Payload. Normalize walks the
// extractors in priority order (paragraphs, then timed words, then the flat
// transcript) and the first one yielding segments wins. Refine adjusts
// spacing and punctuation for Chinese and Japanese text. RenderAll produces
// the txt, json, srt, vtt and md outputs, and InferTitle derives a title
// from the transcript.
package transcription
