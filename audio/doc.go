// Package audio turns a job's source URL into a processed URL every
// supplier can fetch.
//
// Resolution order:
//  1. URLs that already point at processed assets pass through, clipped to
//     the preview length for free-tier jobs.
//  2. The source identity key (external video id plus ":ha1" or ":ha0") is
//     looked up among completed jobs, through a two-level ReuseCache. A
//     high-accuracy request falls back to the standard variant.
//  3. Otherwise the media is downloaded and stored under a content-addressed
//     object key.
//
// When nothing resolves the error is an AppError with code
// MANUAL_UPLOAD_REQUIRED.
package audio
