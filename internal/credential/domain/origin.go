package domain

import (
	"net/url"
	"strings"
)

// OriginAllowed reports whether a request origin may use a credential
// registered for registeredURL. Hosts are compared case-insensitively;
// in the default permissive mode either side may be a strict subdomain of
// the other, which tolerates www. and staging subdomains. Strict mode
// accepts only an exact host match.
func OriginAllowed(registeredURL, requestURL string, strict bool) bool {
	registered := normalizeHost(registeredURL)
	request := normalizeHost(requestURL)
	if registered == "" || request == "" {
		return false
	}
	if registered == request {
		return true
	}
	if strict {
		return false
	}
	return strings.HasSuffix(request, "."+registered) || strings.HasSuffix(registered, "."+request)
}

func normalizeHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
