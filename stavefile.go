//go:build stave

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

// Default target when running `stave` with no arguments.
var Default = All

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"c": Clean,
}

var binaries = []string{"seg-eval", "seg-viz"}

// All runs the complete build pipeline: lint, test, and build.
func All() error {
	st.Deps(Init)
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Init ensures the module dependencies are up to date.
func Init() error {
	return sh.Run("go", "mod", "tidy")
}

// Build compiles the seg-eval and seg-viz binaries.
func Build() error {
	st.Deps(Init)
	st.Deps(Build_Eval, Build_Viz)
	return nil
}

// Build_Eval compiles the seg-eval binary with version information.
func Build_Eval() error {
	return buildBinary("seg-eval")
}

// Build_Viz compiles the seg-viz binary with version information.
func Build_Viz() error {
	return buildBinary("seg-viz")
}

// Build_GoCV compiles seg-viz with the OpenCV renderer. Requires OpenCV.
func Build_GoCV() error {
	st.Deps(Init)
	return sh.RunV("go", "build", "-tags", "gocv", "-ldflags", buildLdflags(),
		"-o", "bin/seg-viz-gocv", "./cmd/seg-viz")
}

func buildBinary(name string) error {
	st.Deps(Init)

	out := "bin/" + name
	rebuild, err := target.Glob(out, "**/*.go", "go.mod", "go.sum")
	if err != nil {
		return fmt.Errorf("checking rebuild: %w", err)
	}
	if !rebuild {
		if st.Verbose() {
			fmt.Printf("%s is up to date\n", name)
		}
		return nil
	}

	return sh.RunV("go", "build", "-ldflags", buildLdflags(), "-o", out, "./cmd/"+name)
}

// buildLdflags returns ldflags for version injection.
func buildLdflags() string {
	version, _ := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	commit, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	date := time.Now().Format(time.RFC3339)

	return fmt.Sprintf(
		"-X main.version=%s -X main.commit=%s -X main.date=%s",
		strings.TrimSpace(version),
		strings.TrimSpace(commit),
		date,
	)
}

// Test runs all tests with race detection and coverage.
func Test() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// TestShort runs tests in short mode (skips long-running tests).
func TestShort() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-short", "-race", "./...")
}

// TestGoCV runs the overlay tests against the OpenCV renderer.
func TestGoCV() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-tags", "gocv", "./internal/overlay/...")
}

// Lint runs golangci-lint on the codebase.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// LintFix runs golangci-lint with auto-fix enabled.
func LintFix() error {
	return sh.RunV("golangci-lint", "run", "--fix", "./...")
}

// Fmt formats all Go code using gofmt and goimports.
func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("gofmt: %w", err)
	}
	if err := sh.Run("goimports", "-w", "."); err != nil {
		return fmt.Errorf("goimports: %w", err)
	}
	return nil
}

// Vet runs go vet on all packages.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts and coverage output.
func Clean() error {
	artifacts := []string{"bin/", "coverage.out", "coverage.html"}
	for _, a := range artifacts {
		if err := sh.Rm(a); err != nil {
			return fmt.Errorf("removing %s: %w", a, err)
		}
	}
	return nil
}

// Install builds and installs the binaries to GOBIN.
func Install() error {
	st.Deps(Build)

	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin == "" {
		gopath, err := sh.Output(gocmd, "env", "GOPATH")
		if err != nil {
			return fmt.Errorf("determining GOPATH: %w", err)
		}
		bin = gopath + "/bin"
	}

	for _, name := range binaries {
		src := "bin/" + name
		dst := bin + "/" + name
		if runtime.GOOS == "windows" {
			dst += ".exe"
		}
		if err := sh.Copy(dst, src); err != nil {
			return fmt.Errorf("installing %s: %w", name, err)
		}
		if st.Verbose() {
			fmt.Printf("Installed %s to %s\n", name, dst)
		}
	}
	return nil
}

// Eval namespace for evaluation runs. Settings come from SEG_* variables or .env.
type Eval st.Namespace

// Run evaluates the configured model on the validation and test sets.
func (Eval) Run() error {
	st.Deps(Build_Eval)
	return sh.RunV("./bin/seg-eval")
}

// Sweep searches for the binarization threshold with the best mean Dice.
func (Eval) Sweep() error {
	st.Deps(Build_Eval)
	return sh.RunV("./bin/seg-eval", "-sweep")
}

// History lists the most recent recorded runs.
func (Eval) History() error {
	st.Deps(Build_Eval)
	return sh.RunV("./bin/seg-eval", "-runs", "10")
}

// Visualize renders overlays for SEG_VIZ_IN into SEG_VIZ_OUT.
func (Eval) Visualize() error {
	st.Deps(Build_Viz)

	in := os.Getenv("SEG_VIZ_IN")
	if in == "" {
		in = "data/unlabeled"
	}
	out := os.Getenv("SEG_VIZ_OUT")
	if out == "" {
		out = "visualizations"
	}
	return sh.RunV("./bin/seg-viz", "-in", in, "-out", out)
}

// CI runs the full CI pipeline (lint, test, build).
func CI() error {
	st.Deps(Init)
	st.SerialDeps(Lint, Test, Build)
	return nil
}

// Check runs quick validation (vet, lint, short tests).
func Check() error {
	st.Deps(Vet, Lint, TestShort)
	return nil
}

// Coverage generates a coverage report.
func Coverage() error {
	st.Deps(Init)
	if err := sh.RunV("go", "test", "-race", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-html=coverage.out", "-o", "coverage.html")
}

// Tidy runs go mod tidy and verifies the go.sum is clean.
func Tidy() error {
	if err := sh.Run("go", "mod", "tidy"); err != nil {
		return err
	}
	// Verify no changes to go.sum (useful for CI)
	output, err := sh.Output("git", "diff", "--exit-code", "go.sum")
	if err != nil {
		if output != "" {
			return fmt.Errorf("go.sum is not clean:\n%s", output)
		}
	}
	return nil
}
