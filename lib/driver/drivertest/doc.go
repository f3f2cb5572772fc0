// Package drivertest provides a shared conformance test suite for
// driver implementations. Every driver package runs RunConnTests
// against its own factory; tests for unsupported features are skipped.
package drivertest
