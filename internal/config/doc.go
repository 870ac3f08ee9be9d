// Package config defines the settings shared by the order-alert binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Values can be overridden from the environment (ORDER_ALERT_*), optionally
// seeded from a .env file in the working directory.
package config
