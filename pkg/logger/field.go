package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one typed key/value attached to a log event.
type Field struct {
	Key   string
	Value interface{}
	add   func(ev *zerolog.Event)
}

func (f Field) addTo(ev *zerolog.Event) {
	if f.add != nil {
		f.add(ev)
		return
	}
	ev.Interface(f.Key, f.Value)
}

// plain is the collector's view of the value; errors become their text so
// entries stay JSON friendly.
func (f Field) plain() interface{} {
	if err, ok := f.Value.(error); ok {
		return err.Error()
	}
	return f.Value
}

func String(key, value string) Field {
	return Field{Key: key, Value: value, add: func(ev *zerolog.Event) { ev.Str(key, value) }}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value, add: func(ev *zerolog.Event) { ev.Int(key, value) }}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value, add: func(ev *zerolog.Event) { ev.Uint64(key, value) }}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value, add: func(ev *zerolog.Event) { ev.Bool(key, value) }}
}

// Duration logs d in whole milliseconds.
func Duration(key string, d time.Duration) Field {
	ms := d.Milliseconds()
	return Field{Key: key, Value: ms, add: func(ev *zerolog.Event) { ev.Int64(key, ms) }}
}

// Error logs err under "error". A nil err adds nothing.
func Error(err error) Field {
	return Field{Key: zerolog.ErrorFieldName, Value: err, add: func(ev *zerolog.Event) { ev.Err(err) }}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
