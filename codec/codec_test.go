/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package codec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/fieldstore/codec"
)

type address struct {
	City string `json:"city"`
	Zip  string `json:"zip,omitempty"`
}

type member struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Age     int      `json:"age"`
	Address address  `json:"address"`
	Tags    []string `json:"tags"`
	Session string   `json:"-"`
}

func sample() member {
	return member{
		ID:      "m-1",
		Name:    "Mike",
		Age:     31,
		Address: address{City: "Lisbon"},
		Tags:    []string{"a", "b"},
		Session: "secret",
	}
}

func TestCodecsRoundTrip(t *testing.T) {
	codecs := []codec.Codec{
		codec.JSON,
		codec.JSONCodec{Indent: "  "},
		codec.YAML,
		codec.Compressed(codec.JSON, codec.Zstd(1)),
		codec.Compressed(codec.YAML, codec.Zstd(4)),
		codec.Compressed(codec.JSON, codec.S2()),
	}
	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(sample())
			require.NoError(t, err)
			assert.NotContains(t, string(data), "secret")

			var got member
			require.NoError(t, c.Unmarshal(data, &got))
			want := sample()
			want.Session = ""
			assert.Equal(t, want, got)
		})
	}
}

func TestYAMLUsesJSONNames(t *testing.T) {
	data, err := codec.YAML.Marshal([]member{sample()})
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "- "))
	assert.Contains(t, text, "city: Lisbon")
	assert.NotContains(t, text, "Session")
}

func TestYAMLNonStringKeys(t *testing.T) {
	var got map[string]map[string]string
	require.NoError(t, codec.YAML.Unmarshal([]byte("outer:\n  1: one\n  true: two\n"), &got))
	assert.Equal(t, "one", got["outer"]["1"])
	assert.Equal(t, "two", got["outer"]["true"])
}

func TestCompressedNames(t *testing.T) {
	assert.Equal(t, "json", codec.Compressed(codec.JSON, codec.None()).Name())
	assert.Equal(t, "json", codec.Compressed(codec.JSON, nil).Name())
	assert.Equal(t, "yaml.zst", codec.Compressed(codec.YAML, codec.Zstd(2)).Name())
}

func TestZstdShrinksRepetitiveData(t *testing.T) {
	raw := bytes.Repeat([]byte(`{"name":"Mike"},`), 500)
	z := codec.Zstd(4)
	packed, err := z.Encode(raw)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(raw)/10)

	unpacked, err := z.Decode(packed)
	require.NoError(t, err)
	assert.Equal(t, raw, unpacked)

	_, err = z.Decode([]byte("not zstd"))
	assert.Error(t, err)
}

func TestDocument(t *testing.T) {
	doc, err := codec.ToDocument(codec.JSON, sample())
	require.NoError(t, err)
	assert.Equal(t, "Mike", doc["name"])
	assert.Equal(t, float64(31), doc["age"])
	assert.Equal(t, map[string]any{"city": "Lisbon"}, doc["address"])
	assert.NotContains(t, doc, "Session")

	doc["name"] = "Michael"
	var got member
	require.NoError(t, codec.FromDocument(codec.JSON, doc, &got))
	assert.Equal(t, "Michael", got.Name)

	_, err = codec.ToDocument(codec.JSON, []int{1})
	assert.Error(t, err)
}
