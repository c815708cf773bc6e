/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

//nolint:all
package testenv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"
)

type ComposeTestMainOptions struct {
	ComposeFile string

	UpArgs   []string
	DownArgs []string

	PreDownBeforeUp    bool
	SkipDownAfterTests bool

	FailIfComposeMissing bool

	// PostgresDSN is pinged until the database accepts connections.
	PostgresDSN  string
	ReadyTimeout time.Duration
	WaitForReady func() error
}

// RunComposeTestMain starts the compose environment, runs the tests and tears
// the environment down again. Without docker or podman the tests run as is.
func RunComposeTestMain(m *testing.M, options ComposeTestMainOptions) int {
	opts := normalizeComposeTestMainOptions(options)

	engine, baseArgs, err := FindCompose()
	if err != nil {
		fmt.Println("compose engine not found:", err)
		if opts.FailIfComposeMissing {
			return 1
		}
		return m.Run()
	}

	run := func(args ...string) error {
		cmdArgs := append([]string{}, baseArgs...)
		cmdArgs = append(cmdArgs, "-f", opts.ComposeFile)
		cmdArgs = append(cmdArgs, args...)
		return RunCompose(context.Background(), engine, cmdArgs...)
	}

	if opts.PreDownBeforeUp {
		_ = run(opts.DownArgs...)
	}

	fmt.Println("Starting Docker Compose...")
	if err := run(opts.UpArgs...); err != nil {
		fmt.Printf("Failed to start Docker Compose: %v\n", err)
		return 1
	}

	if opts.PostgresDSN != "" {
		if err := waitForPostgres(opts.PostgresDSN, opts.ReadyTimeout); err != nil {
			fmt.Printf("Database readiness check failed: %v\n", err)
			if !opts.SkipDownAfterTests {
				_ = run(opts.DownArgs...)
			}
			return 1
		}
	}
	if opts.WaitForReady != nil {
		if err := opts.WaitForReady(); err != nil {
			fmt.Printf("Service readiness check failed: %v\n", err)
			if !opts.SkipDownAfterTests {
				_ = run(opts.DownArgs...)
			}
			return 1
		}
	}

	code := m.Run()

	if !opts.SkipDownAfterTests {
		fmt.Println("Stopping Docker Compose...")
		if err := run(opts.DownArgs...); err != nil {
			fmt.Printf("Failed to stop Docker Compose: %v\n", err)
		}
	}

	return code
}

func normalizeComposeTestMainOptions(options ComposeTestMainOptions) ComposeTestMainOptions {
	if options.ComposeFile == "" {
		options.ComposeFile = "docker_compose/docker_compose.yml"
	}
	if len(options.UpArgs) == 0 {
		options.UpArgs = []string{"up", "-d"}
	}
	if len(options.DownArgs) == 0 {
		options.DownArgs = []string{"down", "-v"}
	}
	if options.PostgresDSN != "" && options.ReadyTimeout <= 0 {
		options.ReadyTimeout = 2 * time.Minute
	}
	return options
}

func waitForPostgres(dsn string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	deadline := time.Now().Add(timeout)
	backoff := time.Second
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := db.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not ready within %s: %w", timeout, err)
		}
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff += 500 * time.Millisecond
		}
	}
}

func FindCompose() (bin string, args []string, err error) {
	if _, e := exec.LookPath("docker"); e == nil {
		return "docker", []string{"compose"}, nil
	}
	if _, e := exec.LookPath("podman"); e == nil {
		return "podman", []string{"compose"}, nil
	}
	return "", nil, errors.New("neither docker nor podman found on PATH")
}

func RunCompose(ctx context.Context, base string, args ...string) error {
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
