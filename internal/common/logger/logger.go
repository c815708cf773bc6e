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

// Package logger provides centralized logging functionality for the AQL query compiler.
package logger

import (
	"log"
	"os"
	"sync/atomic"
)

// Logger provides structured logging for the AQL query compiler.
var logger = log.New(os.Stderr, "[AQL] ", log.LstdFlags|log.Lshortfile)

var debugEnabled atomic.Bool

// SetDebug enables or disables LogDebug output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// LogError logs an error with context information.
//
// Parameters:
//   - context: A description of where/when the error occurred
//   - err: The error that occurred
func LogError(context string, err error) {
	if err != nil {
		logger.Printf("ERROR: %s: %v", context, err)
	}
}

// LogInfo logs an informational message.
//
// Parameters:
//   - message: The message to log
func LogInfo(message string) {
	logger.Printf("INFO: %s", message)
}

// LogWarning logs a warning message.
//
// Parameters:
//   - message: The warning message to log
func LogWarning(message string) {
	logger.Printf("WARN: %s", message)
}

// LogDebug logs a debug message if debug output is enabled.
//
// Parameters:
//   - message: The debug message to log
func LogDebug(message string) {
	if debugEnabled.Load() {
		logger.Printf("DEBUG: %s", message)
	}
}

// LogStage logs the completion of one compilation stage for a query.
//
// Parameters:
//   - stage: Name of the pipeline stage (normalize, check, build, render)
//   - query: Rendered AQL of the query being compiled
func LogStage(stage string, query string) {
	if debugEnabled.Load() {
		logger.Printf("DEBUG: %s done: %s", stage, query)
	}
}
