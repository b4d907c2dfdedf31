// Package common provides shared utilities for tool implementations: the
// instrumentation wrapper every tool executor goes through and small
// argument helpers.
package common
