package util

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"
)

const DefaultPageSize = 10

// PageKey is the last-seen sort key of a catalog listing page. Clients get it
// back base64-encoded as nextKey and echo it verbatim in lastKey to resume.
type PageKey struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodePageKey(k PageKey) string {
	data, _ := json.Marshal(k)
	return base64.StdEncoding.EncodeToString(data)
}

func DecodePageKey(s string) (PageKey, error) {
	var k PageKey
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return k, err
	}
	if err := json.Unmarshal(data, &k); err != nil {
		return k, err
	}
	return k, nil
}

// ClampLimit keeps page sizes within [1, 100].
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > 100 {
		return 100
	}
	return n
}

// Calculate converts page/size query values into an offset and limit for the
// search endpoint.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = DefaultPageSize
	}
	from = (page - 1) * size
	return from, size
}

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
