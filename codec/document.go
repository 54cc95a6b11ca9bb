/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package codec

import (
	"encoding/json"
	"fmt"
)

// ToDocument encodes v with c and decodes the result into a generic document.
// c must produce JSON.
func ToDocument(c Codec, v any) (map[string]any, error) {
	data, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s codec did not produce a JSON object: %w", c.Name(), err)
	}
	return doc, nil
}

// FromDocument decodes a generic document into v through c.
func FromDocument(c Codec, doc map[string]any, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return c.Unmarshal(data, v)
}
