// Package config provides configuration structures and utilities for
// packagebot. It defines the run settings, their defaults and validation,
// the optional .packagebot YAML file and credential loading from the
// environment.
package config
