package extractor

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	reasonMissingURL  = "missing url"
	reasonUnparsable  = "unparsable url"
	reasonNotAbsolute = "url needs a scheme and a host"
	reasonBadHost     = "invalid host"
)

// validateURL returns the trimmed URL, or a non-empty reason when it is not
// an absolute URL.
func validateURL(raw string) (string, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", reasonMissingURL
	}
	if !utf8.ValidString(s) || strings.ContainsAny(s, " \t\r\n") {
		return "", reasonUnparsable
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", reasonUnparsable
	}
	if u.Scheme == "" || u.Host == "" {
		return "", reasonNotAbsolute
	}
	if !validHost(u.Hostname()) {
		return "", reasonBadHost
	}
	return s, ""
}

func validHost(host string) bool {
	alnum := false
	for _, r := range host {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			alnum = true
		case r == '-' || r == '.' || r == ':':
		default:
			return false
		}
	}
	return alnum
}

// normalizeURL is the dedupe key: lower-case scheme and host, no default
// port, no fragment, no trailing slash.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host

	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return u.String()
}
