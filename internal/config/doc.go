// SPDX-License-Identifier: MIT

// Package config loads the payfort service configuration.
//
// Precedence is ENV > YAML file > defaults. The YAML file is parsed strictly:
// unknown keys and trailing documents are rejected. A ConfigHolder keeps the
// active configuration and can hot-reload it when the file changes, which is
// how PayFort SHA phrases are rotated without a restart.
package config
