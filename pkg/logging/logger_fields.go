package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component field helpers for common component names
func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func File(path string) Field {
	return String("file", path)
}

func Namespace(uri string) Field {
	return String("namespace", uri)
}

func NamespaceIndex(idx int) Field {
	return Int("namespace_index", idx)
}

func BrowseName(name string) Field {
	return String("browse_name", name)
}

func Nodes(n int) Field {
	return Int("nodes", n)
}

func References(n int) Field {
	return Int("references", n)
}

func Rounds(n int) Field {
	return Int("rounds", n)
}
