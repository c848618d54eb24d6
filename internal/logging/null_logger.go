package logging

import "github.com/vvka-141/pvsload/pkg/pvsload"

// NullLogger drops every message. Tests use it where output is irrelevant.
type NullLogger struct{}

var _ pvsload.Logger = NullLogger{}

// NewNullLogger returns a NullLogger.
func NewNullLogger() NullLogger { return NullLogger{} }

func (NullLogger) Verbose(string, ...interface{}) {}
func (NullLogger) Info(string, ...interface{})    {}
func (NullLogger) Error(string, ...interface{})   {}
