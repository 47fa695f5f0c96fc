package document

import (
	_ "embed"
)

// The seed ships with the password "admin"; change it before the first push.
//
//go:embed default_seed.json
var defaultSeed []byte

// DefaultSeed returns the raw bytes of the built-in seed document.
func DefaultSeed() []byte {
	out := make([]byte, len(defaultSeed))
	copy(out, defaultSeed)
	return out
}

// Default decodes the built-in seed document.
func Default() *Document {
	d, err := Decode(defaultSeed)
	if err != nil {
		panic("document: embedded seed is invalid: " + err.Error())
	}
	return d
}
