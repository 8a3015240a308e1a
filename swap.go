package hxmodal

import "github.com/PuerkitoBio/goquery"

// SwapMode defines how fetched markup is placed into the modal target.
//
// The names follow the hx-swap vocabulary. The default is SwapInner.
type SwapMode string

const (
	// SwapInner replaces the target's contents, preserving the target itself.
	SwapInner SwapMode = "innerHTML"

	// SwapBeforeEnd appends the markup after the target's existing children.
	SwapBeforeEnd SwapMode = "beforeend"

	// SwapAfterBegin prepends the markup before the target's existing children.
	SwapAfterBegin SwapMode = "afterbegin"
)

// apply places markup into target according to the mode.
func (m SwapMode) apply(target *goquery.Selection, markup string) {
	switch m {
	case SwapBeforeEnd:
		target.AppendHtml(markup)
	case SwapAfterBegin:
		target.PrependHtml(markup)
	default:
		target.SetHtml(markup)
	}
}
