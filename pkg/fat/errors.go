// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fat

import "errors"

// Sentinel error kinds. Callers should compare with errors.Is: most
// operations wrap one of these with call-specific context via fmt.Errorf's
// %w verb, and some (such as a write on a read-only volume) return it bare.
var (
	ErrNotFound      = errors.New("fat: not found")
	ErrAlreadyExists = errors.New("fat: already exists")
	ErrInvalidName   = errors.New("fat: invalid name")
	ErrNoSpace       = errors.New("fat: no space left")
	ErrCorrupt       = errors.New("fat: corrupt volume")
	ErrReadOnly      = errors.New("fat: volume is read-only")
	ErrNotDirectory  = errors.New("fat: not a directory")
	ErrIsDirectory   = errors.New("fat: is a directory")
	ErrNotImplemented = errors.New("fat: not implemented")
)
