package service

import (
	"context"
	"errors"
	"testing"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/pkg/shopify"
)

func TestCredentialProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy", func(t *testing.T) {
		store := setupStore(t, map[string]string{testShop: "tok-1"})
		api := &fakeShopify{shopName: "Shop A"}
		probe := NewCredentialProbe(api, store, NewAuthFailureHandler(store, "", nil), nil)

		revoked, err := probe.Probe(ctx, testShop)
		if err != nil || revoked {
			t.Fatalf("Probe() = %v, %v", revoked, err)
		}
	})

	t.Run("auth failure revokes", func(t *testing.T) {
		store := setupStore(t, map[string]string{testShop: "tok-1"})
		api := &fakeShopify{failAll: &shopify.APIError{Status: 401}}
		probe := NewCredentialProbe(api, store, NewAuthFailureHandler(store, "", nil), nil)

		revoked, err := probe.Probe(ctx, testShop)
		if err != nil || !revoked {
			t.Fatalf("Probe() = %v, %v", revoked, err)
		}
		if _, err := store.GetCredential(ctx, testShop); !errors.Is(err, apperr.ErrTenantNotInstalled) {
			t.Errorf("credential not revoked: %v", err)
		}
	})

	t.Run("transient failure keeps credential", func(t *testing.T) {
		store := setupStore(t, map[string]string{testShop: "tok-1"})
		api := &fakeShopify{failAll: &shopify.APIError{Status: 502, Messages: []string{"Bad Gateway"}}}
		probe := NewCredentialProbe(api, store, NewAuthFailureHandler(store, "", nil), nil)

		revoked, err := probe.Probe(ctx, testShop)
		if err == nil || revoked {
			t.Fatalf("Probe() = %v, %v", revoked, err)
		}
		if _, err := store.GetCredential(ctx, testShop); err != nil {
			t.Errorf("credential should survive: %v", err)
		}
	})
}
