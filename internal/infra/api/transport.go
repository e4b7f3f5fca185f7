package api

import (
	"net"
	"net/http"
	"net/url"
	"time"

	applog "nunu-cli/internal/log"
)

// NewHTTPClient builds the client shared by control-plane and storage
// calls. It honours HTTPS_PROXY/HTTP_PROXY/NO_PROXY. There is no overall
// request timeout since a single PUT may run for a long time.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   30 * time.Second,
		ResponseHeaderTimeout: 10 * time.Minute,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// LogProxy records which proxy, if any, requests to target will use.
// Credentials in the proxy URL are redacted.
func LogProxy(logger *applog.LogContext, target string) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return
	}
	proxy, err := http.ProxyFromEnvironment(req)
	if err != nil {
		logger.WriteLog("API", "Invalid proxy configuration: %v", err)
		return
	}
	if proxy == nil {
		logger.WriteLog("API", "No proxy configured (direct connection)")
		return
	}
	logger.WriteLog("API", "Using proxy: %s", RedactURL(proxy))
}

// RedactURL hides the user name and password of u
func RedactURL(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	clone := *u
	clone.User = url.UserPassword("***", "***")
	return clone.String()
}
