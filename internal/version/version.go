// SPDX-License-Identifier: Apache-2.0

package version

// Version is the wizard script version, persisted into every state file so a
// later run can tell which script wrote it.
var Version = "0.3.0"

// Commit is set at build time via -ldflags.
var Commit = "unknown"
