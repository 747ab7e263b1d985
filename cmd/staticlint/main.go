// Command staticlint runs the project's static analysis: analyzers from
// golang.org/x/tools, ineffassign and nilerr, the noosexit analyzer, and the
// staticcheck, simple and stylecheck analyzers selected in a JSON config.
//
// The config file is looked up in STATICLINT_CONFIG and then next to the
// binary as config.json. Without a config every SA check is enabled:
//
//	{"checks": ["SA", "S1000", "ST1005"]}
//
// A check name may be a full analyzer name or a prefix of it.
package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/patric-chuzhbe/userauth/cmd/staticlint/noosexit"
)

const (
	configFileName = "config.json"
	configEnv      = "STATICLINT_CONFIG"
)

type lintConfig struct {
	Checks []string `json:"checks"`
}

var defaultConfig = lintConfig{Checks: []string{"SA"}}

func configPath() (string, error) {
	if path := os.Getenv(configEnv); path != "" {
		return path, nil
	}

	executable, err := os.Executable()
	if err != nil {
		return "", err
	}

	return filepath.Join(filepath.Dir(executable), configFileName), nil
}

func loadConfig() (lintConfig, error) {
	path, err := configPath()
	if err != nil {
		return lintConfig{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig, nil
	}
	if err != nil {
		return lintConfig{}, err
	}

	var cfg lintConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return lintConfig{}, err
	}

	return cfg, nil
}

func enabled(name string, checks []string) bool {
	for _, check := range checks {
		if strings.HasPrefix(name, check) {
			return true
		}
	}
	return false
}

func selectAnalyzers(checks []string, sets ...[]*lint.Analyzer) []*analysis.Analyzer {
	var result []*analysis.Analyzer
	for _, set := range sets {
		for _, a := range set {
			if enabled(a.Analyzer.Name, checks) {
				result = append(result, a.Analyzer)
			}
		}
	}
	return result
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	checks := []*analysis.Analyzer{
		bools.Analyzer,
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		nilness.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}

	checks = append(checks, selectAnalyzers(cfg.Checks, staticcheck.Analyzers, simple.Analyzers, stylecheck.Analyzers)...)

	multichecker.Main(checks...)
}
