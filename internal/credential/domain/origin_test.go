package domain

import "testing"

func TestOriginAllowed(t *testing.T) {
	cases := []struct {
		name       string
		registered string
		request    string
		strict     bool
		want       bool
	}{
		{"exact match", "https://shop.example", "https://shop.example", false, true},
		{"exact match with path", "https://shop.example/checkout", "https://shop.example", false, true},
		{"case insensitive", "https://Shop.Example", "https://shop.example", false, true},
		{"scheme ignored", "http://shop.example", "https://shop.example", false, true},
		{"bare host", "shop.example", "https://shop.example", false, true},
		{"request subdomain", "https://shop.example", "https://www.shop.example", false, true},
		{"registered subdomain", "https://www.shop.example", "https://shop.example", false, true},
		{"deep subdomain", "https://shop.example", "https://a.b.shop.example", false, true},
		{"unrelated host", "https://shop.example", "https://evil.example", false, false},
		{"suffix overlap is not a subdomain", "https://shop.example", "https://notshop.example", false, false},
		{"port ignored", "https://shop.example", "https://shop.example:8443", false, true},
		{"empty request", "https://shop.example", "", false, false},
		{"empty registered", "", "https://shop.example", false, false},
		{"strict exact", "https://shop.example", "https://shop.example", true, true},
		{"strict rejects subdomain", "https://shop.example", "https://www.shop.example", true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := OriginAllowed(tc.registered, tc.request, tc.strict)
			if got != tc.want {
				t.Fatalf("OriginAllowed(%q, %q, strict=%v) = %v, want %v",
					tc.registered, tc.request, tc.strict, got, tc.want)
			}
		})
	}
}
