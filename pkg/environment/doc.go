// Package environment names the deployment environments the gateway runs in.
//
// The value comes from APP_ENV and selects logger defaults and whether the
// seed file is mandatory.
package environment
