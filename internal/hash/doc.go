// Package hash provides the CRC32-Castagnoli checksum guarding spilled
// facet classes against torn or corrupted blobs.
//
//	sum := hash.CRC32C(block)
package hash
