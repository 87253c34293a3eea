// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"flag"

	"github.com/go-logr/logr"
)

const (
	defaultServerBindAddress = ":8080"
)

var (
	// Commands lists all commands the binary supports.
	Commands = []*Command{
		MonitorCmd,
	}
)

// Command describes one runnable command of the binary.
type Command struct {
	Name      string
	UsageLine string
	ShortDesc string
	LongDesc  string
	AddFlags  func(fs *flag.FlagSet)
	Run       func(ctx context.Context, args []string, logger logr.Logger) error
}

// SharedOpts are the flags shared by all commands.
type SharedOpts struct {
	// ConfigPath is the command specific configuration file path which is typically a mounted config-map YAML file
	ConfigPath string
	// ServerBindAddress is the TCP address the ingress and status server binds to
	ServerBindAddress string
}

// SetSharedOpts binds the shared flags to the given flag set.
func SetSharedOpts(fs *flag.FlagSet, opts *SharedOpts) {
	fs.StringVar(&opts.ConfigPath, "config-path", "", "Path of the config file containing the configuration")
	fs.StringVar(&opts.ServerBindAddress, "server-bind-addr", defaultServerBindAddress, "The TCP address the ingress and status server binds to")
}
