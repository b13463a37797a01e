package ecard

import "encoding/binary"

// Big-endian helpers for the fixed-width wire fields the applets exchange.

func be16(value int64) []byte {
	buffer := make([]byte, 2)
	binary.BigEndian.PutUint16(buffer, uint16(value))
	return buffer
}

func be32(value int64) []byte {
	buffer := make([]byte, 4)
	binary.BigEndian.PutUint32(buffer, uint32(value))
	return buffer
}

func parseBe16(data []byte) int64 {
	return int64(binary.BigEndian.Uint16(data))
}

func parseBe32(data []byte) int64 {
	return int64(binary.BigEndian.Uint32(data))
}
