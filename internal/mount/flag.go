// Copyright 2024 Google LLC
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

package mount

import (
	"sort"
	"strings"
)

// ParseOptions parse an option string in the format accepted by mount(8) and
// generated for its external mount helpers.
//
// It is assumed that option name and values do not contain commas, and that
// the first equals sign in an option is the name/value separator. There is no
// support for escaping.
//
// For example, if the input is
//
//	user,foo=bar=baz,qux
//
// then the following will be inserted into the map.
//
//	"user": "",
//	"foo": "bar=baz",
//	"qux": "",
func ParseOptions(m map[string]string, s string) {
	// NOTE: The man pages don't define how escaping works, and as far
	// as I can tell there is no way to properly escape or quote a comma in the
	// options list for an fstab entry. So put our fingers in our ears and hope
	// that nobody needs a comma.
	for _, p := range strings.Split(s, ",") {
		var name string
		var value string

		// Split on the first equals sign.
		if equalsIndex := strings.IndexByte(p, '='); equalsIndex != -1 {
			name = p[:equalsIndex]
			value = p[equalsIndex+1:]
		} else {
			name = p
		}

		m[name] = value
	}
}

// FormatOptions renders the option map back into "-o name=value" token pairs
// in a deterministic order, ready to append to a libfuse argument vector.
func FormatOptions(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	tokens := make([]string, 0, 2*len(m))
	for _, name := range names {
		opt := name
		if value := m[name]; value != "" {
			opt = name + "=" + value
		}
		tokens = append(tokens, "-o", opt)
	}
	return tokens
}

// FuseTokens assembles the argument vector handed to libfuse: the program
// name, an optional debug switch, then every mount option. Each element of
// rawOpts may itself be a comma separated mount(8) list.
func FuseTokens(progName string, rawOpts []string, debugFuse bool) []string {
	opts := make(map[string]string)
	for _, raw := range rawOpts {
		if raw == "" {
			continue
		}
		ParseOptions(opts, raw)
	}

	tokens := []string{progName}
	if debugFuse {
		tokens = append(tokens, "-d")
	}
	tokens = append(tokens, FormatOptions(opts)...)
	return tokens
}
