package shopify

import (
	"fmt"
	"strings"

	"github.com/Ztola/shopify-ai-seo/internal/domain"
)

// CredentialResolver produces the effective shop for a call, falling back to
// the deployment's default credentials when the caller supplies none.
type CredentialResolver struct {
	defaultShop domain.Shop
}

// NewCredentialResolver wires the fallback shop credentials (usually from config).
func NewCredentialResolver(defaultShop domain.Shop) *CredentialResolver {
	return &CredentialResolver{defaultShop: normalizeShop(defaultShop)}
}

// Resolve returns the shop to use for a call. An explicitly supplied shop
// wins over the configured default; missing credentials fail fast.
func (r *CredentialResolver) Resolve(shop domain.Shop) (domain.Shop, error) {
	shop = normalizeShop(shop)
	if shop.Domain == "" {
		shop.Domain = r.defaultShop.Domain
	}
	if shop.AccessToken == "" {
		shop.AccessToken = r.defaultShop.AccessToken
	}
	if !shop.Configured() {
		return domain.Shop{}, fmt.Errorf("resolve shop %q: %w", shop.Domain, ErrCredentialsMissing)
	}
	return shop, nil
}

// normalizeShop trims noise so "https://x.myshopify.com/" and
// "x.myshopify.com" resolve to the same client gate.
func normalizeShop(shop domain.Shop) domain.Shop {
	d := strings.TrimSpace(shop.Domain)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimSuffix(d, "/")
	shop.Domain = d
	shop.AccessToken = strings.TrimSpace(shop.AccessToken)
	return shop
}
