package common

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{name: "remote addr with port", remoteAddr: "10.0.0.1:52000", want: "10.0.0.1"},
		{name: "forwarded chain picks first hop", remoteAddr: "10.0.0.1:52000", forwarded: "203.0.113.7, 10.0.0.2", want: "203.0.113.7"},
		{name: "garbage forwarded value ignored", remoteAddr: "10.0.0.1:52000", forwarded: "not-an-ip", want: "10.0.0.1"},
		{name: "real ip fallback", remoteAddr: "10.0.0.1:52000", realIP: "198.51.100.4", want: "198.51.100.4"},
		{name: "ipv6 forwarded", remoteAddr: "10.0.0.1:52000", forwarded: "2001:db8::1", want: "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := ClientIP(r); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
