// Package dsnparam splits extension parameters out of a driver DSN.
package dsnparam

import (
	"fmt"
	"net/url"
)

// Extract removes keys from the query of dsn. It returns their values and
// the DSN without them; the remaining parameters keep their order.
func Extract(dsn string, keys ...string) (url.Values, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("invalid DSN: %w", err)
	}

	q := u.Query()
	taken := make(url.Values, len(keys))
	for _, key := range keys {
		if vs, ok := q[key]; ok {
			taken[key] = vs
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return taken, u.String(), nil
}
