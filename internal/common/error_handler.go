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

package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorHandler is the JSON body reported for a failed query compilation.
type ErrorHandler struct {
	MessageType   string `json:"messageType"`
	Text          string `json:"text"`
	Code          string `json:"code,omitempty"`
	CorrelationId string `json:"correlationId,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

func NewErrorHandler(messageType string, text error, code string, correlationId string, timestamp string) *ErrorHandler {
	return &ErrorHandler{
		MessageType:   messageType,
		Text:          text.Error(),
		Code:          code,
		CorrelationId: correlationId,
		Timestamp:     timestamp,
	}
}

// ErrorReport builds the JSON body for err, coded with its HTTP status.
func ErrorReport(err error) *ErrorHandler {
	return NewErrorHandler("Error", err, strconv.Itoa(StatusCodeOf(err)), "", GetCurrentTimestamp())
}

// GetCurrentTimestamp returns the current time in RFC 3339 format.
func GetCurrentTimestamp() string {
	return time.Now().Format(time.RFC3339)
}

// AqlErrorKind classifies why a query could not be compiled.
type AqlErrorKind int

const (
	// KindIllegalAql marks queries that are well-formed but not coherent against the RM.
	KindIllegalAql AqlErrorKind = iota
	// KindFeatureNotImplemented marks valid AQL outside the supported subset.
	KindFeatureNotImplemented
	// KindInternal marks a broken invariant inside the compiler.
	KindInternal
)

func (k AqlErrorKind) String() string {
	switch k {
	case KindIllegalAql:
		return "IllegalAql"
	case KindFeatureNotImplemented:
		return "FeatureNotImplemented"
	default:
		return "Internal"
	}
}

// AqlError is the single error type raised by the AQL pipeline.
type AqlError struct {
	Kind    AqlErrorKind
	Message string
	Cause   error
}

func (e *AqlError) Error() string {
	msg := e.statusPrefix() + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AqlError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error kind onto the HTTP status a surrounding service reports.
func (e *AqlError) StatusCode() int {
	switch e.Kind {
	case KindIllegalAql:
		return http.StatusBadRequest
	case KindFeatureNotImplemented:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (e *AqlError) statusPrefix() string {
	code := e.StatusCode()
	return fmt.Sprintf("%d %s: ", code, http.StatusText(code))
}

func NewErrIllegalAql(format string, args ...any) error {
	return &AqlError{Kind: KindIllegalAql, Message: fmt.Sprintf(format, args...)}
}

func NewErrFeatureNotImplemented(format string, args ...any) error {
	return &AqlError{Kind: KindFeatureNotImplemented, Message: fmt.Sprintf(format, args...)}
}

// NewErrInternal wraps cause (may be nil) as an internal invariant violation.
func NewErrInternal(cause error, format string, args ...any) error {
	return &AqlError{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func IsErrIllegalAql(err error) bool {
	return hasKind(err, KindIllegalAql)
}

func IsErrFeatureNotImplemented(err error) bool {
	return hasKind(err, KindFeatureNotImplemented)
}

func IsErrInternal(err error) bool {
	return hasKind(err, KindInternal)
}

// StatusCodeOf returns the HTTP status for err, 500 for errors outside the taxonomy.
func StatusCodeOf(err error) int {
	var aqlErr *AqlError
	if errors.As(err, &aqlErr) {
		return aqlErr.StatusCode()
	}
	return http.StatusInternalServerError
}

func hasKind(err error, kind AqlErrorKind) bool {
	var aqlErr *AqlError
	return errors.As(err, &aqlErr) && aqlErr.Kind == kind
}
