// Package db embeds the default seed fixtures.
package db

import "embed"

// Seed holds one Extended JSON array per collection, named <collection>.json.
//
//go:embed seed/*.json
var Seed embed.FS
