// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//
// LoadSettings maps stored keys onto engine settings, leaving absent
// keys at their defaults.
package file
