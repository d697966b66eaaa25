package security

import (
	"math"
	"regexp"
	"strings"
)

// EntropyThreshold is the bits per byte above which a long token is treated
// as a possible encoded payload. English prose sits around 4.
const EntropyThreshold = 4.8

var (
	encodedSegment  = regexp.MustCompile(`[A-Za-z0-9+/=_\-]{50,}`)
	base64Token     = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	base64URLToken  = regexp.MustCompile(`^[A-Za-z0-9_\-]+={0,2}$`)
	percentEncoding = regexp.MustCompile(`(%[0-9A-Fa-f]{2}){3,}`)
)

// ShannonEntropy returns the entropy of data in bits per byte.
func ShannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	n := float64(len(data))
	var h float64
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// DetectEncoding returns a finding when content carries a run of percent
// escapes or a long high-entropy base64 token.
func DetectEncoding(content string) (Finding, bool) {
	if m := percentEncoding.FindString(content); m != "" {
		return Finding{Kind: "encoding", Name: "url", Match: m}, true
	}
	for _, seg := range encodedSegment.FindAllString(content, -1) {
		if ShannonEntropy([]byte(seg)) < EntropyThreshold {
			continue
		}
		switch {
		case len(seg)%4 == 0 && base64Token.MatchString(seg):
			return Finding{Kind: "encoding", Name: "base64", Match: seg}, true
		case strings.ContainsAny(seg, "-_") && base64URLToken.MatchString(seg):
			return Finding{Kind: "encoding", Name: "base64url", Match: seg}, true
		}
	}
	return Finding{}, false
}
