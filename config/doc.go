// Package config loads session defaults from a YAML file.
//
// The file is named either explicitly or through the DATABROKER_CONFIG
// environment variable. There are no fallbacks or automatic discovery;
// with no file the built-in defaults apply.
package config
