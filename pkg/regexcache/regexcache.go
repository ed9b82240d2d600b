// Package regexcache caches compiled regular expressions. The crawler
// extractors and the response classifiers evaluate the same patterns for
// every page and every probe; compiling them once keeps the hot paths cheap.
package regexcache

import (
	"regexp"
	"sync"
)

var cache sync.Map // pattern string -> *regexp.Regexp

// Get returns the compiled regexp for pattern, compiling and caching it on
// first use.
func Get(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// MustGet is Get but panics on an invalid pattern. Intended for package-level
// pattern tables that are covered by tests.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// Clear drops all cached expressions. Test helper.
func Clear() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}
