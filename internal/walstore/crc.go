package walstore

import "hash/crc32"

// crc32Checksum computes a standard IEEE CRC-32 checksum over data.
// Grounded on the teacher's wal/crc.go, which the teacher itself never
// wires into its binary encoder (encode.go recomputes the CRC inline
// instead of calling this helper) — walstore fixes that split here.
func crc32Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func crc32Validate(data []byte, sum uint32) bool {
	return crc32.ChecksumIEEE(data) == sum
}
