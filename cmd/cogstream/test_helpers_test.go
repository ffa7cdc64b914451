package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cogstream/internal/config"
	"cogstream/internal/testsupport"
)

const (
	testProduct = "test-tiles"
	testUnit    = "LS_15_-40_20080506102018000000"
)

// converterScript writes one unit directory per item holding a copy of the
// input, so published output can be checked by file name.
const converterScript = `set -e
stem=$(basename "$1" .nc)
unit="$2/` + testUnit + `"
mkdir -p "$unit"
cp "$1" "$unit/$stem.tif"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	sourceRoot string
	sources    []string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2, 2), testsupport.WithQueueLimit(2))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("COGSTREAM_BUCKET", "")

	sourceRoot := filepath.Join(base, "source")
	sources := testsupport.SourceTree(t, sourceRoot,
		"15_-40/LS5_TM_FC_3577_15_-40_20080506102018000000_v1.nc",
		"15_-40/LS5_TM_FC_3577_15_-40_20080607102018000000_v1.nc",
		"15_-40/LS5_TM_FC_3577_15_-40_20090101000000000000_v1.nc",
		"16_-40/LS5_TM_FC_3577_16_-40_20080710102018000000_v1.nc",
	)

	script := filepath.Join(base, "bin", "convert.sh")
	testsupport.WriteExecutable(t, script, converterScript)
	cfg.Converter.Command = script

	productsFile := filepath.Join(base, "products.yaml")
	products := fmt.Sprintf("products:\n  %s:\n    title: Test Tiles\n    source: %s\n    prefix: tiles/v1\n    layout: time_partitioned\n", testProduct, sourceRoot)
	if err := os.WriteFile(productsFile, []byte(products), 0o644); err != nil {
		t.Fatalf("write products: %v", err)
	}
	cfg.Paths.ProductsFile = productsFile
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"

	configPath := filepath.Join(base, "cogstream.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, sourceRoot: sourceRoot, sources: sources}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
