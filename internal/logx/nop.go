package logx

// Nop returns a Logger that drops every entry.
func Nop() Logger { return nop{} }

type nop struct{}

var _ Logger = nop{}

func (nop) Debug(string, ...Field) {}
func (nop) Info(string, ...Field)  {}
func (nop) Warn(string, ...Field)  {}
func (nop) Error(string, ...Field) {}
func (n nop) With(...Field) Logger { return n }
func (nop) Sync() error            { return nil }
