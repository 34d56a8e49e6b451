// Package abi provides internal utilities for the wire codec: overflow-safe
// size arithmetic, transfer limits, char validation and little-endian
// integer helpers.
//
// This package is internal to the transcoder.
package abi
