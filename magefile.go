//go:build mage

// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/magefile/mage/mg" // mg contains helpful utility functions, like Deps
	"github.com/magefile/mage/sh"
)

const (
	binaryName  = "pvbench"
	packageName = "."
	modulePath  = "github.com/penny-vault/pv-benchmark"
	coverFile   = "coverage.out"
)

var ldflags = "-X " + modulePath + "/common.commitHash=$COMMIT_HASH -X " + modulePath + "/common.buildDate=$BUILD_DATE"

// allow user to override go executable by running as GOEXE=xxx make ... on unix-like systems
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

// Build the pvbench binary with version information
func Build() error {
	fmt.Println("Building...")
	return sh.RunWith(flagEnv(), goexe, withBuildFlags("build", "-o", binaryName, "-ldflags", ldflags, "-v", packageName)...)
}

func Install() error {
	return sh.RunWith(flagEnv(), goexe, withBuildFlags("install", "-ldflags", ldflags, packageName)...)
}

// Compute the benchmark once and log the rows without touching the database
func DryRun() error {
	mg.Deps(Build)
	return sh.RunV("./"+binaryName, "run", "--dry-run", "--log-pretty")
}

// Print the configured roster as the binary sees it
func Roster() error {
	mg.Deps(Build)
	return sh.RunV("./"+binaryName, "roster")
}

// Clean up
func Clean() {
	fmt.Println("Cleaning...")
	os.RemoveAll(binaryName)
	os.RemoveAll(coverFile)
}

// Run formatting, vet and the race enabled test suites
func Check() {
	mg.Deps(Fmt, Vet)
	mg.Deps(TestRace)
}

// Run tests
func Test() error {
	fmt.Println("Go Test")
	return runQuiet(goexe, "test", "./...")
}

// Run tests with race detector; the benchmark runner fans out across goroutines
func TestRace() error {
	fmt.Println("Go Test Race")
	return runQuiet(goexe, "test", "-race", "./...")
}

// Report files that gofmt would change
func Fmt() error {
	fmt.Println("Go Format")
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}

	unformatted := make([]string, 0)
	for _, fn := range strings.Split(out, "\n") {
		// underscore directories are ignored by the go tool as well
		if fn == "" || strings.HasPrefix(fn, "_") {
			continue
		}
		unformatted = append(unformatted, fn)
	}
	if len(unformatted) > 0 {
		fmt.Println("The following files are not gofmt'ed:")
		fmt.Println(strings.Join(unformatted, "\n"))
		return errors.New("improperly formatted go files")
	}
	return nil
}

func Vet() error {
	fmt.Println("Go Vet")
	if err := sh.Run(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("error running go vet: %w", err)
	}
	return nil
}

// Print per function coverage of the test suites
func Cover() error {
	fmt.Println("Go Coverage")
	if err := runQuiet(goexe, "test", "-coverprofile="+coverFile, "-covermode=count", "./..."); err != nil {
		return err
	}
	return sh.RunV(goexe, "tool", "cover", "-func="+coverFile)
}

// Helpers

func withBuildFlags(args ...string) []string {
	if runtime.GOOS == "windows" {
		// keep the sub command first
		return append([]string{args[0], "-buildmode", "exe"}, args[1:]...)
	}
	return args
}

func flagEnv() map[string]string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return map[string]string{
		"COMMIT_HASH": hash,
		"BUILD_DATE":  time.Now().Format("2006-01-02T15:04:05Z0700"),
	}
}

// runQuiet only prints the command output when it fails or mage runs verbose
func runQuiet(cmd string, args ...string) error {
	if mg.Verbose() {
		return sh.RunV(cmd, args...)
	}
	output, err := sh.Output(cmd, args...)
	if err != nil {
		fmt.Fprint(os.Stderr, output)
	}
	return err
}
