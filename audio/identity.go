package audio

import (
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Variant suffixes of a source identity key.
const (
	VariantHighAccuracy = ":ha1"
	VariantStandard     = ":ha0"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// ExternalVideoID extracts the id of a linked video. URLs of unknown hosts
// are identified by a hash of the normalized URL.
func ExternalVideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "url-" + shortHash(raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
			return v
		}
		if len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live") &&
			videoIDPattern.MatchString(segments[1]) {
			return segments[1]
		}
	case "youtu.be":
		if len(segments) >= 1 && videoIDPattern.MatchString(segments[0]) {
			return segments[0]
		}
	case "vimeo.com":
		if len(segments) >= 1 && segments[0] != "" && strings.Trim(segments[0], "0123456789") == "" {
			return "vimeo-" + segments[0]
		}
	}

	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	return "url-" + shortHash(u.String())
}

// IdentityKey is the reuse lookup key of a source in one accuracy variant.
func IdentityKey(videoID string, highAccuracy bool) string {
	if highAccuracy {
		return videoID + VariantHighAccuracy
	}
	return videoID + VariantStandard
}

// objectKey is the content-addressed storage path of a source.
func objectKey(prefix, identity, sourceURL, contentType string) string {
	return prefix + "/" + shortHash(identity) + extension(sourceURL, contentType)
}

func shortHash(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

var extByType = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/ogg":   ".ogg",
	"audio/webm":  ".webm",
	"audio/flac":  ".flac",
	"video/mp4":   ".mp4",
	"video/webm":  ".webm",
}

func extension(sourceURL, contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	if ext, ok := extByType[strings.TrimSpace(strings.ToLower(ct))]; ok {
		return ext
	}
	if u, err := url.Parse(sourceURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		for _, known := range extByType {
			if ext == known {
				return ext
			}
		}
	}
	return ""
}
