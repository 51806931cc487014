// Package adaptertest provides hand-written fakes for the adapter
// interfaces used across unit tests.
package adaptertest

import "context"

// HTTPClient is a programmable fake for adapter.HTTPClient.
type HTTPClient struct {
	GetBytesFunc func(ctx context.Context, url string, headers map[string]string) ([]byte, error)
	HeadFunc     func(ctx context.Context, url string, headers map[string]string) (int, error)

	// Calls records every URL requested, in order.
	Calls []string
}

func (c *HTTPClient) GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	c.Calls = append(c.Calls, url)
	if c.GetBytesFunc == nil {
		return nil, nil
	}
	return c.GetBytesFunc(ctx, url, headers)
}

func (c *HTTPClient) Head(ctx context.Context, url string, headers map[string]string) (int, error) {
	c.Calls = append(c.Calls, url)
	if c.HeadFunc == nil {
		return 0, nil
	}
	return c.HeadFunc(ctx, url, headers)
}
