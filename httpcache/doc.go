// Package httpcache caches outbound HTTP responses.
//
// A Transport wraps an http.RoundTripper. Requests opt in per call with
// WithCache, or all requests are cached when the transport defaults enable
// it. On a hit the stored response is replayed without calling the wrapped
// transport; on a miss the response is forwarded and, when its status is
// 2xx, stored in the cache facade.
//
// Usage:
//
//	client := &http.Client{Transport: httpcache.NewTransport(c, nil)}
//	req = req.WithContext(httpcache.WithCache(ctx, httpcache.TTL(5*time.Second)))
//	resp, err := client.Do(req)
//
// Keys default to the full request URL including the query string. Key and
// KeyFunc override it; SubjectKey partitions responses by the subject of a
// bearer token.
package httpcache
