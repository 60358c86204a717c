// Package ipchecker decides whether a request comes from the trusted subnet
// that may read the internal statistics.
package ipchecker

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/todoplan/internal/models"
)

// IPChecker extracts a client's IP address from an HTTP request and checks
// it against a trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for a subnet in CIDR notation (e.g. "192.168.1.0/24").
// An empty trustedSubnet gives a checker that trusts nobody.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("parse trusted subnet %q: %w", trustedSubnet, err)
	}

	return &IPChecker{
		trustedSubnet: allowedNet,
	}, nil
}

// Check reports whether clientIP is inside the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client's IP address, checking in order the
// "X-Real-IP" header, the first "X-Forwarded-For" entry and RemoteAddr.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip, nil
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("split remote address %q: %w", request.RemoteAddr, err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("remote address %q is not an IP", request.RemoteAddr)
	}

	return ip, nil
}

// IsTrustedSubnetEmpty returns true if the IPChecker was created without a subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// Allow reports whether the request comes from the trusted subnet.
func (checker *IPChecker) Allow(request *http.Request) bool {
	if checker.IsTrustedSubnetEmpty() {
		return false
	}

	clientIP, err := checker.GetClientIP(request)
	if err != nil {
		return false
	}

	return checker.Check(clientIP)
}

// TrustedOnly is a middleware answering 403 to requests from outside the trusted subnet.
func (checker *IPChecker) TrustedOnly(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if !checker.Allow(request) {
			response.Header().Set("Content-Type", "application/json")
			response.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(response).Encode(models.ErrorResponse{Error: "Forbidden"})
			return
		}

		h.ServeHTTP(response, request)
	})
}
