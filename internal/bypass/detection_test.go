package bypass

import (
	"net/http"
	"testing"
)

func header(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		res    *Response
		vendor string
	}{
		{
			name: "plain page",
			res:  &Response{StatusCode: 200, Header: header("Server", "nginx"), Body: []byte("OK")},
		},
		{
			name: "cloudflare server header on 200 is not a challenge",
			res:  &Response{StatusCode: 200, Header: header("Server", "cloudflare"), Body: []byte("<table class=items>")},
		},
		{
			name:   "cloudflare server header",
			res:    &Response{StatusCode: 403, Header: header("Server", "cloudflare"), Body: []byte("Access Denied")},
			vendor: "Cloudflare",
		},
		{
			name:   "cloudflare body",
			res:    &Response{StatusCode: 503, Header: header(), Body: []byte("<html>... cf-turnstile ...</html>")},
			vendor: "Cloudflare",
		},
		{
			name:   "akamai server header",
			res:    &Response{StatusCode: 403, Header: header("Server", "AkamaiGHost")},
			vendor: "Akamai",
		},
		{
			name:   "akamai reference page",
			res:    &Response{StatusCode: 403, Header: header(), Body: []byte("Access Denied... Reference #123.456")},
			vendor: "Akamai",
		},
		{
			name: "akamai needs both markers",
			res:  &Response{StatusCode: 403, Header: header(), Body: []byte("Reference #123")},
		},
		{
			name:   "datadome header",
			res:    &Response{StatusCode: 403, Header: header("X-DataDome", "1")},
			vendor: "DataDome",
		},
		{
			name:   "datadome body",
			res:    &Response{StatusCode: 403, Header: header(), Body: []byte("script src='https://geo.captcha-delivery.com/...'")},
			vendor: "DataDome",
		},
		{
			name:   "perimeterx header",
			res:    &Response{StatusCode: 403, Header: header("X-Px-Captcha", "required")},
			vendor: "PerimeterX",
		},
		{
			name:   "perimeterx body",
			res:    &Response{StatusCode: 403, Header: header(), Body: []byte("window._pxBlock = true;")},
			vendor: "PerimeterX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor, ok := Detect(tt.res, DefaultDetectors())
			if ok != (tt.vendor != "") || vendor != tt.vendor {
				t.Errorf("Detect() = (%q, %v), want %q", vendor, ok, tt.vendor)
			}
		})
	}
}

func TestDetect_Nil(t *testing.T) {
	if _, ok := Detect(nil, DefaultDetectors()); ok {
		t.Error("expected nil response to be undetected")
	}
}
