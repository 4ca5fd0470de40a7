package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/netx"
)

// transport sends JSON requests carrying the project's anon key.
type transport struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func newTransport(baseURL, anonKey string, hc *http.Client) transport {
	if hc == nil {
		hc = http.DefaultClient
	}
	return transport{baseURL: strings.TrimRight(baseURL, "/"), anonKey: anonKey, http: hc}
}

// call performs one request. An empty bearer authenticates as the anon role.
func (t transport) call(ctx context.Context, method, path string, query url.Values, body any, bearer string, hdr http.Header, out any) error {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := netx.NewJSONRequest(ctx, method, u, body)
	if err != nil {
		return err
	}

	if bearer == "" {
		bearer = t.anonKey
	}
	req.Header.Set("apikey", t.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	for k, v := range hdr {
		req.Header[k] = v
	}

	return mapError(netx.Do(t.http, req, out))
}
