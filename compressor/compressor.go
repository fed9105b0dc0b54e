// Package compressor is the opaque generic stream compressor adapter
// (component C3). The codec never knows which compression algorithm
// backs it; it only calls Compress and Decompress on whole-file byte
// slices. This implementation backs the contract with
// github.com/klauspost/compress/zstd, the compression library shared by
// several repositories in the wider example pack.
package compressor

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Magic is the 6-byte header written at the start of a compressed (.zlp)
// payload so Sniff can recognize it without attempting a decode.
var Magic = [6]byte{'S', 'L', 'P', 'Z', 'S', 'T'}

// Sniff reports whether buf begins with the compressed-stream magic.
func Sniff(buf []byte) bool {
	if len(buf) < len(Magic) {
		return false
	}
	for i, b := range Magic {
		if buf[i] != b {
			return false
		}
	}
	return true
}

// Compress returns Magic followed by the zstd-compressed form of raw.
func Compress(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errors.Wrap(err, "compressor: new encoder")
	}
	defer enc.Close()

	var out bytes.Buffer
	out.Write(Magic[:])
	out.Write(enc.EncodeAll(raw, nil))
	return out.Bytes(), nil
}

// Decompress reverses Compress. It returns an error if buf does not begin
// with Magic.
func Decompress(buf []byte) ([]byte, error) {
	if !Sniff(buf) {
		return nil, errors.New("compressor: missing magic header")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "compressor: new decoder")
	}
	defer dec.Close()

	out, err := dec.DecodeAll(buf[len(Magic):], nil)
	if err != nil {
		return nil, errors.Wrap(err, "compressor: decode")
	}
	return out, nil
}
