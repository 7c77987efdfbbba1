/*
 * (C) Copyright [2021-2022] Hewlett Packard Enterprise Development LP
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

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

type Problem7807TS struct {
	suite.Suite
}

func (suite *Problem7807TS) TestEqualsSameInput() {
	for _, err := range []error{nil, errors.New("no such resource")} {
		a := GetFormattedErrorMessage(err, http.StatusNotFound)
		b := GetFormattedErrorMessage(err, http.StatusNotFound)
		suite.True(a.Equals(b))
		suite.True(b.Equals(a))
	}
}

func (suite *Problem7807TS) TestEqualsEachField() {
	base := GetFormattedErrorMessage(errors.New("unknown hot-swap action"), http.StatusBadRequest)
	suite.True(base.Equals(base))

	changes := map[string]func(p *Problem7807){
		"type":     func(p *Problem7807) { p.Type_ = "urn:hpi:hotswap" },
		"title":    func(p *Problem7807) { p.Title = "Conflict" },
		"detail":   func(p *Problem7807) { p.Detail = "resource is not hot-swappable" },
		"instance": func(p *Problem7807) { p.Instance = "/hotswap/2" },
		"status":   func(p *Problem7807) { p.Status = http.StatusConflict },
	}
	for name, change := range changes {
		other := base
		change(&other)
		suite.False(base.Equals(other), name)
		suite.False(other.Equals(base), name)
	}
}

func TestModelProblem7807Suite(t *testing.T) {
	suite.Run(t, new(Problem7807TS))
}
