// Copyright 2025 The Groundlink Authors.
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

package app

import (
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/groundlink/pkg/log"
)

// NamedFlagSetOptions abstracts configuration options for reading parameters
// from the command line, grouped into named flag sets for help output.
type NamedFlagSetOptions interface {
	// Flags returns the flag sets, one per option group.
	Flags() cliflag.NamedFlagSets

	// Complete fills in defaults that depend on other options.
	Complete() error

	// Validate checks the options after flags and config are applied.
	Validate() error
}

// LogOptionsProvider is implemented by options that carry logger settings.
// The logger is initialized from them before the run function is called.
type LogOptionsProvider interface {
	LogOptions() *log.Options
}
