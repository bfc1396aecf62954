// Package providers implements the HTTP data sources registered with the
// aggregation engines. Each provider pairs one vendor call with a pure
// normalizer from that vendor's payload into the common record schema.
package providers

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "WhatNow-Discovery/1.0"

// NewHTTPClient returns the shared resty client. Retries are kept short
// because every call already races the query deadline.
func NewHTTPClient() *resty.Client {
	return resty.New().
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", userAgent)
}
