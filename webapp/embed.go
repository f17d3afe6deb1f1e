// Package webapp provides the embedded single-page explorer UI.
package webapp

import "embed"

//go:embed index.html
var Assets embed.FS
