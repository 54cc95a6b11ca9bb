/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package codec

import (
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compressor compresses and decompresses encoded payloads.
type Compressor interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	Extension() string
}

type none struct{}

// None returns a pass-through compressor.
func None() Compressor { return none{} }

func (none) Encode(data []byte) ([]byte, error) { return data, nil }
func (none) Decode(data []byte) ([]byte, error) { return data, nil }
func (none) Extension() string                  { return "" }

type s2c struct{}

// S2 returns a fast compressor using S2.
func S2() Compressor { return s2c{} }

func (s2c) Encode(data []byte) ([]byte, error) { return s2.Encode(nil, data), nil }
func (s2c) Decode(data []byte) ([]byte, error) { return s2.Decode(nil, data) }
func (s2c) Extension() string                  { return ".s2" }

type zstdc struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Zstd returns a Zstandard compressor.
// Level: 1 (fastest) to 4 (best compression).
func Zstd(level int) Compressor {
	lvl := zstd.SpeedDefault
	if level <= 1 {
		lvl = zstd.SpeedFastest
	} else if level >= 4 {
		lvl = zstd.SpeedBestCompression
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(lvl)) //nolint:errcheck // options are valid
	dec, _ := zstd.NewReader(nil)                             //nolint:errcheck // options are valid
	return &zstdc{enc: enc, dec: dec}
}

func (z *zstdc) Encode(data []byte) ([]byte, error) { return z.enc.EncodeAll(data, nil), nil }
func (z *zstdc) Decode(data []byte) ([]byte, error) { return z.dec.DecodeAll(data, nil) }
func (*zstdc) Extension() string                    { return ".zst" }

type compressed struct {
	inner Codec
	comp  Compressor
}

// Compressed wraps inner so its output passes through comp.
func Compressed(inner Codec, comp Compressor) Codec {
	if comp == nil || comp.Extension() == "" {
		return inner
	}
	return compressed{inner: inner, comp: comp}
}

func (c compressed) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.comp.Encode(data)
}

func (c compressed) Unmarshal(data []byte, v any) error {
	raw, err := c.comp.Decode(data)
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(raw, v)
}

func (c compressed) Name() string { return c.inner.Name() + c.comp.Extension() }
