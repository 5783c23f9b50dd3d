package vocabulary

import (
	"strings"
	"testing"
)

func TestDefaultLoads(t *testing.T) {
	v := Default()
	if v.OthersLabel() != "OTHERS" {
		t.Fatalf("OthersLabel = %q, want OTHERS", v.OthersLabel())
	}
}

func TestClassMembership(t *testing.T) {
	v := Default()
	tests := []struct {
		name string
		is   func(string) bool
		in   []string
		out  []string
	}{
		{"locale", v.IsLocale, []string{"site_language", "language", "Locale", "page_locale_code"}, []string{"price", "content_group"}},
		{"numeric", v.IsNumeric, []string{"price", "value", "product_price", "search_result_count", "cart_total", "item_qty"}, []string{"product_id", "site_name", "search_term"}},
		{"identifier", v.IsIdentifier, []string{"transaction_id", "product_id", "id", "product_sku"}, []string{"price", "identity"}},
		{"mode", v.IsMode, []string{"site_name", "channel", " PLATFORM "}, []string{"channel_name"}},
		{"group", v.IsGroupLabel, []string{"content_group", "page_type"}, []string{"group_id", "content"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, n := range tt.in {
				if !tt.is(n) {
					t.Errorf("%s: %q should match", tt.name, n)
				}
			}
			for _, n := range tt.out {
				if tt.is(n) {
					t.Errorf("%s: %q should not match", tt.name, n)
				}
			}
		})
	}
}

func TestCanonicalAliases(t *testing.T) {
	v := Default()
	tests := []struct {
		key  string
		want string
	}{
		{"PDP", "PRODUCT_DETAIL"},
		{"PRODUCTDETAIL", "PRODUCT_DETAIL"},
		{"HOME", "MAIN"},
		{"MAIN", "MAIN"},
		{"CHECKOUT", "ORDER"},
		{"SEARCHRESULTS", "SEARCH"},
		{"MYPAGE", "MY_PAGE"},
	}
	for _, tt := range tests {
		got, ok := v.Canonical(tt.key)
		if !ok || got != tt.want {
			t.Errorf("Canonical(%q) = %q, %v; want %q", tt.key, got, ok, tt.want)
		}
	}
	if _, ok := v.Canonical("SOMETHINGELSE"); ok {
		t.Error("unknown label should not resolve")
	}
}

func TestDerivable(t *testing.T) {
	v := Default()
	for _, n := range []string{"product_name", "order_id", "cart_total", "search_term", "Product_Brand"} {
		if !v.Derivable(n) {
			t.Errorf("Derivable(%q) = false, want true", n)
		}
	}
	for _, n := range []string{"site_language", "content_group", "user_id"} {
		if v.Derivable(n) {
			t.Errorf("Derivable(%q) = true, want false", n)
		}
	}
}

func TestInferGroup(t *testing.T) {
	v := Default()
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://shop.example.com/", "MAIN", true},
		{"https://shop.example.com", "MAIN", true},
		{"https://shop.example.com/product/12345?ref=home", "PRODUCT_DETAIL", true},
		{"https://shop.example.com/category/shoes", "PRODUCT_LIST", true},
		{"https://shop.example.com/search?q=bag", "SEARCH", true},
		{"https://shop.example.com/cart", "CART", true},
		{"https://shop.example.com/checkout/complete", "ORDER_COMPLETE", true},
		{"https://shop.example.com/checkout", "ORDER", true},
		{"https://shop.example.com/about-us", "", false},
	}
	for _, tt := range tests {
		got, ok := v.InferGroup(tt.url)
		if got != tt.want || ok != tt.ok {
			t.Errorf("InferGroup(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewRejectsConflictingAlias(t *testing.T) {
	_, err := New(File{Aliases: map[string][]string{
		"MAIN":  {"HOME"},
		"LOBBY":  {"HOME"},
	}})
	if err == nil || !strings.Contains(err.Error(), "HOME") {
		t.Fatalf("expected alias conflict error, got %v", err)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(File{URLPatterns: []URLPattern{{Pattern: "(", Group: "X"}}})
	if err == nil {
		t.Fatal("expected error for invalid regexp")
	}
	_, err = New(File{URLPatterns: []URLPattern{{Pattern: "/x"}}})
	if err == nil {
		t.Fatal("expected error for pattern without group")
	}
}

func TestMergeOverlay(t *testing.T) {
	base, err := DefaultFile()
	if err != nil {
		t.Fatalf("DefaultFile: %v", err)
	}
	overlay := File{
		OthersLabel:       "ETC",
		Group:             NameSet{Names: []string{"screen_category"}},
		Aliases:           map[string][]string{"MAIN": {"FRONT"}, "OUTLET": {"SALE"}},
		AllowlistPrefixes: []string{"promotion"},
		URLPatterns:       []URLPattern{{Pattern: "^/$", Group: "FRONT_DOOR"}},
	}
	v, err := New(Merge(base, overlay))
	if err != nil {
		t.Fatalf("New(merged): %v", err)
	}
	if v.OthersLabel() != "ETC" {
		t.Errorf("OthersLabel = %q, want ETC", v.OthersLabel())
	}
	if !v.IsGroupLabel("screen_category") || !v.IsGroupLabel("content_group") {
		t.Error("merged group names should include base and overlay")
	}
	if got, _ := v.Canonical("FRONT"); got != "MAIN" {
		t.Errorf("Canonical(FRONT) = %q, want MAIN", got)
	}
	if got, _ := v.Canonical("HOME"); got != "MAIN" {
		t.Errorf("Canonical(HOME) = %q, want MAIN (base alias kept)", got)
	}
	if got, _ := v.Canonical("SALE"); got != "OUTLET" {
		t.Errorf("Canonical(SALE) = %q, want OUTLET", got)
	}
	if !v.Derivable("promotion_name") {
		t.Error("overlay allowlist prefix not applied")
	}
	if got, _ := v.InferGroup("https://x.test/"); got != "FRONT_DOOR" {
		t.Errorf("overlay pattern should shadow default, got %q", got)
	}
	// Base must be untouched.
	if len(base.Aliases["MAIN"]) != 5 {
		t.Errorf("Merge mutated base aliases: %v", base.Aliases["MAIN"])
	}
}
