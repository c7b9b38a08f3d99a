// Package pagination drives paginated backend reads.
//
// An Iterator walks one logical batch page by page with offset and
// limit parameters, stopping on a short page, a satisfied caller
// limit or a fatal error. FanOut runs one sequential page loop per
// batch on a bounded worker pool and merges the results in batch
// order.
//
// Example usage:
//
//	it := pagination.NewIterator(fetch, 1000, 2500)
//	for it.Next(ctx) {
//		process(it.Page())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// Backend statuses that classify as missing or invalid input surface
// from the transport as retry.ErrEmptyResult; the iterator treats
// them as an empty final page so read paths degrade to an empty
// contribution instead of failing.
package pagination
