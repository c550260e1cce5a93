package domain

import "testing"

func TestShopConfigured(t *testing.T) {
	if (Shop{}).Configured() {
		t.Fatalf("empty shop must not be configured")
	}
	if (Shop{Domain: "x.myshopify.com"}).Configured() {
		t.Fatalf("shop without token must not be configured")
	}
	if !(Shop{Domain: "x.myshopify.com", AccessToken: "tok"}).Configured() {
		t.Fatalf("complete shop must be configured")
	}
}

func TestProductHasTag(t *testing.T) {
	p := Product{Tags: []string{"new", "optimized"}}
	if !p.HasTag("optimized") {
		t.Fatalf("tag lookup failed")
	}
	if p.HasTag("sale") {
		t.Fatalf("absent tag reported present")
	}
	if (Product{}).HasTag("optimized") {
		t.Fatalf("empty tag set reported a tag")
	}
}

func TestDefaultScheduleConfig(t *testing.T) {
	cfg := DefaultScheduleConfig()
	if cfg.Enabled {
		t.Fatalf("default schedule must be disabled")
	}
	if cfg.TimeOfDay != DefaultTimeOfDay {
		t.Fatalf("unexpected default time %q", cfg.TimeOfDay)
	}
	if cfg.Shop != nil || cfg.LastRunAt != nil {
		t.Fatalf("default schedule must carry no shop or run history")
	}
}
