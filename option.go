package openpay

import (
	"net/http"
	"time"

	"github.com/vitwit/openpay/logger"
	"github.com/vitwit/openpay/metrics"
)

type Option func(*OpenPay)

func WithLogger(l logger.Logger) Option {
	return func(o *OpenPay) {
		o.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *OpenPay) {
		o.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(o *OpenPay) {
		o.timeout = t
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *OpenPay) {
		o.httpClient = c
	}
}
