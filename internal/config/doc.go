// Package config holds the run configuration of the seeing CLI.
//
// Configuration is read from a YAML file and then overridden by command
// line flags. The file is searched in the following order:
//
//  1. the path given with --config
//  2. .seeing.yaml in the current directory
//  3. $XDG_CONFIG_HOME/seeingmetrics/config.yaml
//
// Every field has a default taken from seeing.NewParams, so an empty file
// and no file at all behave the same.
package config
