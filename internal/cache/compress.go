package cache

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

// compressedMagic prefixes any payload this package has zstd-compressed, so
// a reader can tell compressed and raw blobs apart unambiguously, per
// spec §4.4's "small magic header" requirement.
var compressedMagic = []byte("LBZS")

// tryCompress zstd-compresses data, prefixed with compressedMagic. Callers
// must still check that the result is smaller before using it (spec §4.4:
// compression is applied "iff the compressed form is strictly smaller").
func tryCompress(data []byte) ([]byte, bool) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, false
	}
	defer enc.Close()
	out := make([]byte, 0, len(compressedMagic)+len(data))
	out = append(out, compressedMagic...)
	out = enc.EncodeAll(data, out)
	return out, true
}

// maybeDecompress returns data unchanged if it doesn't carry compressedMagic,
// otherwise decompresses the remainder.
func maybeDecompress(data []byte) ([]byte, error) {
	if len(data) < len(compressedMagic) || !bytes.Equal(data[:len(compressedMagic)], compressedMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data[len(compressedMagic):], nil)
}
