package middleware

import (
	"net"
	"net/http"

	"github.com/bmtechlabs/umai-payment-receiver/internal/handler"
	"github.com/bmtechlabs/umai-payment-receiver/internal/logging"
)

// Allowlist rejects requests whose source address is outside the configured
// networks. This is the only authentication the payment network offers: it
// delivers from a published address range. An empty list allows everything,
// which is the development default.
func Allowlist(cidrs []string) (func(http.Handler) http.Handler, error) {
	var nets []*net.IPNet
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			// Accept bare addresses as /32 (/128 for IPv6).
			ip := net.ParseIP(c)
			if ip == nil {
				return nil, &net.ParseError{Type: "CIDR or IP address", Text: c}
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			n = &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
		}
		nets = append(nets, n)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(nets) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			ip := net.ParseIP(host)
			if ip == nil || !allowed(nets, ip) {
				logging.FromContext(r.Context()).Warn("request from disallowed source",
					"remote_addr", r.RemoteAddr,
				)
				handler.RespondAppError(w, handler.ErrForbiddenSource, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func allowed(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
