package customHttpClient

import (
	"net/http"
	"time"

	"github.com/akolanti/DocMind/internal/config"
)

// one pooled transport for GROBID and OpenRouter so repeated calls keep their connections warm
var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}

func Transport() http.RoundTripper {
	return customTransport
}
