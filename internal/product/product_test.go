package product_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cogstream/internal/product"
)

func TestSignatureKey(t *testing.T) {
	tests := []struct {
		sig  product.Signature
		want string
	}{
		{product.Signature{Product: "fc-ls5"}, "fc-ls5"},
		{product.Signature{Product: "fc-ls5", Year: 2008}, "fc-ls5_2008"},
		{product.Signature{Product: "fc-ls5", Year: 2008, Month: 3}, "fc-ls5_2008_3"},
	}
	for _, tc := range tests {
		if got := tc.sig.Key(); got != tc.want {
			t.Errorf("Key(%+v) = %q, want %q", tc.sig, got, tc.want)
		}
	}
}

func TestSignatureValidate(t *testing.T) {
	bad := []product.Signature{
		{},
		{Product: "a/b"},
		{Product: "x", Month: 3},
		{Product: "x", Year: 2000, Month: 13},
	}
	for _, sig := range bad {
		if err := sig.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded, want error", sig)
		}
	}
	if err := (product.Signature{Product: "x", Year: 2000, Month: 12}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSignatureWindow(t *testing.T) {
	from, to, ok := product.Signature{Product: "x", Year: 2019, Month: 12}.Window()
	if !ok {
		t.Fatal("expected window")
	}
	if !from.Equal(time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window = %s..%s", from, to)
	}
	if _, _, ok := (product.Signature{Product: "x"}).Window(); ok {
		t.Fatal("expected no window without year")
	}
}

func TestSignatureMatchesFile(t *testing.T) {
	sig := product.Signature{Product: "fc-ls5", Year: 2008, Month: 3}
	cases := map[string]bool{
		"/d/-10_-12/LS5_TM_FC_3577_-10_-12_20080303234513500000_v1508892726.nc": true,
		"/d/-10_-12/LS5_TM_FC_3577_-10_-12_20080403234513500000_v1508892726.nc": false,
		"/d/-10_-12/LS5_TM_FC_3577_-10_-12_20090303234513500000_v1508892726.nc": false,
		"/d/-10_-12/LS5_TM_FC_3577_-10_-12_2008_v1508892726.nc":                 true,
		"/d/plain.nc": false,
	}
	for path, want := range cases {
		if got := sig.MatchesFile(path); got != want {
			t.Errorf("MatchesFile(%q) = %v, want %v", path, got, want)
		}
	}
	if !(product.Signature{Product: "fc-ls5"}).MatchesFile("/d/plain.nc") {
		t.Error("signature without year should match everything")
	}
}

func TestRemoteDirTimePartitioned(t *testing.T) {
	got, err := product.RemoteDir(product.TimePartitioned{}, "LS_WATER_3577_9_-39_20180506102018000000")
	if err != nil {
		t.Fatalf("RemoteDir: %v", err)
	}
	if want := "x_9/y_-39/2018/05/06"; got != want {
		t.Fatalf("RemoteDir = %q, want %q", got, want)
	}
	got, err = product.RemoteDir(product.TimePartitioned{}, "LS_WATER_3577_9_-39_20180506102018000000_v1524")
	if err != nil || got != "x_9/y_-39/2018/05/06" {
		t.Fatalf("versioned unit = %q, %v", got, err)
	}
	if _, err := product.RemoteDir(product.TimePartitioned{}, "LS_WATER_3577_9_-39_2018"); err == nil {
		t.Fatal("expected short timestamp to fail")
	}
}

func TestRemoteDirFlat(t *testing.T) {
	got, err := product.RemoteDir(product.Flat{Template: "tiles/{{.X}}/{{.Year}}"}, "LS_WATER_3577_9_-39_20180506102018000000")
	if err != nil {
		t.Fatalf("RemoteDir: %v", err)
	}
	if got != "tiles/9/2018" {
		t.Fatalf("RemoteDir = %q", got)
	}
	got, err = product.RemoteDir(product.Flat{}, "anything")
	if err != nil || got != "" {
		t.Fatalf("empty template = %q, %v", got, err)
	}
	got, err = product.RemoteDir(product.Flat{Template: "by-name/{{.Name}}"}, "scene-a")
	if err != nil || got != "by-name/scene-a" {
		t.Fatalf("name template = %q, %v", got, err)
	}
}

func TestBuiltinRegistry(t *testing.T) {
	reg := product.Builtin()
	names := reg.Names()
	if len(names) != 3 || names[0] != "fc-ls5" || names[2] != "wofs-wofls" {
		t.Fatalf("names = %v", names)
	}
	p, err := reg.Lookup("fc-ls8")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Prefix != "fractional-cover/fc/v2.2.0/ls8" || product.LayoutName(p.Layout) != "time_partitioned" {
		t.Fatalf("unexpected product %+v", p)
	}
	if _, err := reg.Lookup("nope"); err == nil {
		t.Fatal("expected unknown product error")
	}
}

func TestLoadRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	body := `products:
  scenes:
    enumeration: catalog
    prefix: /scenes/
    layout: flat
    template: "{{.Name}}"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := product.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := reg.Lookup("scenes")
	if err != nil {
		t.Fatal(err)
	}
	if p.Prefix != "scenes" || p.Enumeration != product.SourceCatalog {
		t.Fatalf("unexpected product %+v", p)
	}
	if p.DisplayTitle() != "SCENES" {
		t.Fatalf("DisplayTitle = %q", p.DisplayTitle())
	}
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	bad := []string{
		"products: {}",
		"products:\n  x:\n    layout: spiral\n    source: /d\n",
		"products:\n  x:\n    enumeration: filesystem\n",
		"products:\n  x:\n    source: /d\n    template: \"{{.Name}}\"\n",
	}
	for _, body := range bad {
		if _, err := product.Parse([]byte(body)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", body)
		}
	}
}

func TestFileTime(t *testing.T) {
	got, ok := product.FileTime("/d/LS5_TM_FC_3577_-10_-12_20080303234513500000_v1508892726.nc")
	if !ok || !got.Equal(time.Date(2008, 3, 3, 23, 45, 13, 0, time.UTC)) {
		t.Fatalf("FileTime = %s, %v", got, ok)
	}
	got, ok = product.FileTime("/d/LS_WATER_3577_9_-39_2018_v1.nc")
	if !ok || !got.Equal(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("year-only FileTime = %s, %v", got, ok)
	}
	if _, ok := product.FileTime("/d/plain.nc"); ok {
		t.Fatal("expected no timestamp")
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	sigs := []product.Signature{
		{Product: "fc-ls5"},
		{Product: "fc-ls5", Year: 2008},
		{Product: "fc-ls5", Year: 2008, Month: 11},
		{Product: "my_product", Year: 1999, Month: 2},
	}
	for _, sig := range sigs {
		got, err := product.ParseKey(sig.Key())
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", sig.Key(), err)
		}
		if got != sig {
			t.Errorf("ParseKey(%q) = %+v, want %+v", sig.Key(), got, sig)
		}
	}
	if _, err := product.ParseKey(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}
