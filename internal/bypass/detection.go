// Package bypass recognizes bot-protection challenge pages. A challenge page
// has none of the ranking markup, so without this check it would be parsed
// as an empty page and the snapshot silently skipped.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the part of an HTTP response the detectors look at.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector reports whether res is a challenge page and which vendor served it.
type Detector func(res *Response) (detected bool, vendor string)

// signature describes one vendor's block page.
type signature struct {
	vendor   string
	statuses []int
	// serverSubstr matches the lowercased Server header.
	serverSubstr string
	// headers are response headers whose presence alone is conclusive.
	headers []string
	// bodyAny matches when any marker is found in the body.
	bodyAny []string
	// bodyAll matches when every marker is found in the body.
	bodyAll []string
}

var signatures = []signature{
	{
		vendor:       "Cloudflare",
		statuses:     []int{http.StatusForbidden, http.StatusServiceUnavailable},
		serverSubstr: "cloudflare",
		bodyAny:      []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"},
	},
	{
		vendor:       "Akamai",
		statuses:     []int{http.StatusForbidden},
		serverSubstr: "akamai",
		bodyAll:      []string{"Reference #", "Access Denied"},
	},
	{
		vendor:       "DataDome",
		statuses:     []int{http.StatusForbidden},
		serverSubstr: "datadome",
		headers:      []string{"X-DataDome", "X-DataDome-Response"},
		bodyAny:      []string{"geo.captcha-delivery.com", "datadome"},
	},
	{
		vendor:   "PerimeterX",
		statuses: []int{http.StatusForbidden},
		headers:  []string{"X-Px-Captcha"},
		bodyAny:  []string{"client.perimeterx.net", "px-captcha", "_pxBlock"},
	},
}

// DefaultDetectors returns one detector per known vendor.
func DefaultDetectors() []Detector {
	detectors := make([]Detector, 0, len(signatures))
	for _, sig := range signatures {
		detectors = append(detectors, sig.detect)
	}
	return detectors
}

// Detect runs detectors in order and returns the first vendor that matches.
func Detect(res *Response, detectors []Detector) (string, bool) {
	if res == nil {
		return "", false
	}
	for _, d := range detectors {
		if ok, vendor := d(res); ok {
			return vendor, true
		}
	}
	return "", false
}

func (s signature) detect(res *Response) (bool, string) {
	if !s.statusMatches(res.StatusCode) {
		return false, ""
	}
	if s.serverSubstr != "" && strings.Contains(strings.ToLower(res.Header.Get("Server")), s.serverSubstr) {
		return true, s.vendor
	}
	for _, h := range s.headers {
		if res.Header.Get(h) != "" {
			return true, s.vendor
		}
	}
	for _, m := range s.bodyAny {
		if bytes.Contains(res.Body, []byte(m)) {
			return true, s.vendor
		}
	}
	if len(s.bodyAll) > 0 {
		for _, m := range s.bodyAll {
			if !bytes.Contains(res.Body, []byte(m)) {
				return false, ""
			}
		}
		return true, s.vendor
	}
	return false, ""
}

func (s signature) statusMatches(code int) bool {
	for _, c := range s.statuses {
		if c == code {
			return true
		}
	}
	return false
}
