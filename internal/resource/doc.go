// Package resource bounds the process-wide cost of facet production.
//
//   - Memory: bytes of cached class bitmaps (non-blocking, fail-fast)
//   - Discovery: concurrent term scans (semaphore)
//   - Spill IO: overflow writes and reads (token bucket)
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:         256 << 20,
//	    MaxConcurrentDiscoveries: 4,
//	    SpillBytesPerSec:         32 << 20,
//	})
//
//	if err := rc.AcquireDiscovery(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseDiscovery()
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
