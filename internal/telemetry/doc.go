// Package telemetry builds the logger and trace provider used by weakbus.
package telemetry
