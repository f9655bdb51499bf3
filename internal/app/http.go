package app

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient returns the client shared by page, image and LLM calls. The
// per-host idle pool fits one page plus imageConcurrency images. Deadlines
// come from contexts and fetch.Client, so the client sets no overall timeout.
func newHTTPClient(imageConcurrency int) *http.Client {
	if imageConcurrency < 1 {
		imageConcurrency = defaultImageConcurrency
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   imageConcurrency + 1,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}
