package logsvc

import "github.com/trezcool/masomo-admin/core"

// NopLogger discards everything. Fatal does not exit.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func NewNopLogger() NopLogger { return NopLogger{} }

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
