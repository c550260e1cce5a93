package httpclient

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewRestyHTTPClient returns a resty.Client with the specified timeout and
// resty's own retry machinery disabled; callers layer their own policies.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetRetryCount(0)
	return c
}
