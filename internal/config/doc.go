// Package config holds the notionsync settings and loads them from the YAML
// config file and the environment.
package config
