// Package cache provides an optional Redis-backed cache for attribute
// definition pages and attribute value batches.
//
// Attribute definitions and scalar values change rarely compared to
// series data, so repeated queries over the same projects can skip the
// backend for those steps. Keys are deterministic over project, request kind,
// a hash of the request filter and the page offset; entries carry
// their own expiry and are written with a matching Redis TTL.
//
// The cache is strictly optional. A nil manager (or a manager built
// without a Redis client) reports every lookup as a miss and drops
// every write, so call sites never branch on whether caching is
// configured.
//
// Example usage:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(rdb, 5*time.Minute)
//
//	key := cache.Key{
//		Kind:       cache.KindAttributeDefinitions,
//		Project:    "workspace/project",
//		FilterHash: cache.HashStrings(attributeNames),
//		Offset:     0,
//	}
//	entry, err := manager.Get(ctx, key)
package cache
