// ledger/bounds.go - Amount bounds enforced before any write
package ledger

// Tip bounds, in points.
const (
	TipMin = 10
	TipMax = 50000
)

// Marketplace listing price bounds, in points.
const (
	OfferPriceMin = 100
	OfferPriceMax = 1000000
)

// Giveaway winner selection window: distinct senders among the most recent
// N messages in the channel.
const GiveawayWindow = 50

// GiftCardDenominations are the redeemable gift-card values, in points.
var GiftCardDenominations = []int{500, 1000, 2500, 5000}

// ValidTipAmount checks the tip bounds.
func ValidTipAmount(amount int) bool {
	return amount >= TipMin && amount <= TipMax
}

// ValidOfferPrice checks the offer listing bounds. Enforced at creation
// time only.
func ValidOfferPrice(price int) bool {
	return price >= OfferPriceMin && price <= OfferPriceMax
}

// ValidGiftCardAmount checks against the denomination table.
func ValidGiftCardAmount(amount int) bool {
	for _, d := range GiftCardDenominations {
		if d == amount {
			return true
		}
	}
	return false
}
