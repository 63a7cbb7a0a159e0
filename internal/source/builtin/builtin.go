// Package builtin lists the source adapters shipped with gorecipe in
// dispatch priority order.
package builtin

import (
	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/source"
	"github.com/hyperifyio/gorecipe/internal/source/knusperstuebchen"
	"github.com/hyperifyio/gorecipe/internal/source/pinterest"
	"github.com/hyperifyio/gorecipe/internal/source/sallyswelt"
)

// Adapters returns a fresh, ordered adapter list sharing g.
func Adapters(g fetch.Getter) []source.Adapter {
	return []source.Adapter{
		pinterest.New(g),
		sallyswelt.New(g),
		knusperstuebchen.New(g),
	}
}

// Names returns the adapter names in priority order.
func Names() []string {
	return []string{pinterest.Name, sallyswelt.Name, knusperstuebchen.Name}
}
