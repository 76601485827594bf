package main

import _ "embed"

// embeddedConfig holds the YAML configuration embedded at build time.
// The embed_config.yaml file is a staging file that image builds overwrite
// with the target board's layout before compiling.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
