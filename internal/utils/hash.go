package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// CalculateDataMD5 returns the hex MD5 digest of data. Used for content
// addressing uploads and for cheap equality checks on encoded images.
func CalculateDataMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
