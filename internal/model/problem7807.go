/*
 * MIT License
 *
 * (C) Copyright [2025] Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 * OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 * ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 * OTHER DEALINGS IN THE SOFTWARE.
 */

package model

import "net/http"

// Problem7807 is an RFC 7807 problem details payload.
type Problem7807 struct {
	Type_    string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Status   int    `json:"status,omitempty"`
}

func (p Problem7807) Equals(other Problem7807) bool {
	return p.Type_ == other.Type_ &&
		p.Title == other.Title &&
		p.Detail == other.Detail &&
		p.Instance == other.Instance &&
		p.Status == other.Status
}

func GetFormattedErrorMessage(err error, statusCode int) (pp Problem7807) {
	pp.Type_ = "about:blank"
	pp.Title = http.StatusText(statusCode)
	pp.Status = statusCode
	pp.Instance = ""
	if err != nil {
		pp.Detail = err.Error()
	} else {
		pp.Detail = "unknown error - could not parse from error object"
	}
	return pp
}
