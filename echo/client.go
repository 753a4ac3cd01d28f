package echo

import (
	"net"
	"net/http"
	"strings"
)

// clientInfo is what the server can tell about the caller, taking forwarding
// headers into account only when the immediate peer is a trusted proxy.
type clientInfo struct {
	ip         string
	ips        []string
	protocol   string
	hostname   string
	subdomains []string
}

// subdomainOffset is the number of trailing labels treated as the registrable
// domain when computing subdomains.
const subdomainOffset = 2

func resolveClient(r *http.Request, scheme string) clientInfo {
	remote := remoteIp(r.RemoteAddr)
	trusted := isTrustedProxy(remote)

	info := clientInfo{
		ip:       remote,
		ips:      []string{},
		protocol: scheme,
		hostname: r.Host,
	}

	if trusted {
		// walk X-Forwarded-For from the nearest hop outwards, stopping at the
		// first address we do not trust
		forwarded := splitHeaderList(r.Header.Values("X-Forwarded-For"))
		chain := []string{remote}
		for i := len(forwarded) - 1; i >= 0; i-- {
			chain = append(chain, forwarded[i])
			if !isTrustedProxy(forwarded[i]) {
				break
			}
		}
		info.ip = chain[len(chain)-1]
		for i := len(chain) - 1; i >= 1; i-- {
			info.ips = append(info.ips, chain[i])
		}

		if proto := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
			info.protocol = proto
		}
		if host := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); host != "" {
			info.hostname = host
		}
	}

	info.hostname = stripPort(info.hostname)
	info.subdomains = subdomains(info.hostname)

	return info
}

func remoteIp(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrustedProxy(addr string) bool {
	ip := net.ParseIP(strings.Trim(addr, "[]"))
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate()
}

func splitHeaderList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func firstHeaderValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// stripPort removes a trailing port, keeping bracketed IPv6 literals intact.
func stripPort(host string) string {
	offset := 0
	if strings.HasPrefix(host, "[") {
		end := strings.IndexByte(host, ']')
		if end < 0 {
			return host
		}
		offset = end + 1
	}
	if i := strings.IndexByte(host[offset:], ':'); i >= 0 {
		return host[:offset+i]
	}
	return host
}

// subdomains returns the labels left of the registrable domain, nearest first.
func subdomains(hostname string) []string {
	if hostname == "" || net.ParseIP(strings.Trim(hostname, "[]")) != nil {
		return []string{}
	}
	labels := strings.Split(hostname, ".")
	if len(labels) <= subdomainOffset {
		return []string{}
	}
	out := make([]string, 0, len(labels)-subdomainOffset)
	for i := len(labels) - 1 - subdomainOffset; i >= 0; i-- {
		out = append(out, labels[i])
	}
	return out
}
