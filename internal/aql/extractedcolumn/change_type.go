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

package extractedcolumn

// changeTypes maps the audit change types stored in audit_details.change_type
// to their openEHR terminology codes.
var changeTypes = []struct {
	name string
	code string
}{
	{"creation", "249"},
	{"amendment", "250"},
	{"modification", "251"},
	{"synthesis", "252"},
	{"unknown", "253"},
	{"deleted", "523"},
	{"attestation", "666"},
}

// ChangeTypeCode returns the openEHR code of a stored change type.
func ChangeTypeCode(name string) (string, bool) {
	for _, ct := range changeTypes {
		if ct.name == name {
			return ct.code, true
		}
	}
	return "", false
}

// ChangeTypeName returns the stored change type of an openEHR code.
func ChangeTypeName(code string) (string, bool) {
	for _, ct := range changeTypes {
		if ct.code == code {
			return ct.name, true
		}
	}
	return "", false
}
