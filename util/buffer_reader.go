package util

// ReadUB2Byte2UInt16 reads a little-endian uint16 from buff.
func ReadUB2Byte2UInt16(buff []byte) uint16 {
	return uint16(buff[0]) | uint16(buff[1])<<8
}

// ReadUB4Byte2UInt32 reads a little-endian uint32 from buff.
func ReadUB4Byte2UInt32(buff []byte) uint32 {
	return uint32(buff[0]) | uint32(buff[1])<<8 | uint32(buff[2])<<16 | uint32(buff[3])<<24
}

// ReadB4Byte2Int32 reads a little-endian int32 from buff.
func ReadB4Byte2Int32(buff []byte) int32 {
	return int32(ReadUB4Byte2UInt32(buff))
}

// ReadUB8Byte2UInt64 reads a little-endian uint64 from buff.
func ReadUB8Byte2UInt64(buff []byte) uint64 {
	return uint64(ReadUB4Byte2UInt32(buff)) | uint64(ReadUB4Byte2UInt32(buff[4:]))<<32
}

// ReadB8Byte2Int64 reads a little-endian int64 from buff.
func ReadB8Byte2Int64(buff []byte) int64 {
	return int64(ReadUB8Byte2UInt64(buff))
}
