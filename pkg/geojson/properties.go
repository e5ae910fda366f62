// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

package geojson

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/arrowarc/geoarc/internal/json"
	"github.com/arrowarc/geoarc/pkg/record"
)

// decodeProperties reads a properties object keeping member order. Nested
// objects and arrays are kept as their compact JSON text.
func decodeProperties(raw json.RawMessage, path string) (record.Properties, error) {
	props := record.NewProperties(8)
	if isNull(raw) {
		return props, nil
	}

	dec := json.NewNumberDecoder(raw)
	tok, err := dec.Token()
	if err != nil {
		return props, pathErr(path, "invalid JSON: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return props, pathErr(path, "properties must be an object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return props, pathErr(path, "invalid JSON: %v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return props, pathErr(path, "expected member name, found %v", tok)
		}
		var member json.RawMessage
		if err := dec.Decode(&member); err != nil {
			return props, pathErr(path+"."+key, "invalid JSON: %v", err)
		}
		v, err := propertyValue(member)
		if err != nil {
			return props, pathErr(path+"."+key, "%v", err)
		}
		props.Set(key, v)
	}
	return props, nil
}

func propertyValue(raw json.RawMessage) (record.Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return record.NullValue(), nil
	}
	switch raw[0] {
	case 'n':
		return record.NullValue(), nil
	case 't':
		return record.BoolValue(true), nil
	case 'f':
		return record.BoolValue(false), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return record.Value{}, err
		}
		return record.StringValue(s), nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return record.Value{}, err
		}
		return record.StringValue(buf.String()), nil
	default:
		return numberValue(string(raw))
	}
}

// numberValue keeps integral literals that fit in 64 bits as integers and
// widens everything else to float.
func numberValue(s string) (record.Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return record.IntegerValue(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return record.Value{}, err
	}
	return record.FloatValue(f), nil
}
