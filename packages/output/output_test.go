package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	"github.com/abdul-hamid-achik/hitshell/packages/stats"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"string", "hello", "hello"},
		{"whole number", float64(3), "3"},
		{"fraction", 1.5, "1.5"},
		{"bool", true, "true"},
		{"sentinel", value.MissingMember, value.MissingMember.String()},
		{"key value", value.KeyValue{Key: "a", Value: "b"}, "a=b"},
		{"json bytes", []byte(`{"a":1}`), "{\n  \"a\": 1\n}"},
		{"raw bytes", []byte("plain"), "plain"},
		{"map", map[string]any{"k": "v"}, "{\n  \"k\": \"v\"\n}"},
		{"list", []string{"a"}, "[\n  \"a\"\n]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormat_Unmarshalable(t *testing.T) {
	ch := make(chan int)
	assert.Equal(t, fmt.Sprintf("%v", ch), Format(ch))
}

func TestReformatJSON(t *testing.T) {
	pretty, ok := ReformatJSON([]byte("  [1,2]\n"))
	require.True(t, ok)
	assert.Equal(t, "[\n  1,\n  2\n]", pretty)

	_, ok = ReformatJSON([]byte("not json"))
	assert.False(t, ok)
	_, ok = ReformatJSON(nil)
	assert.False(t, ok)
}

func TestIsSingleLine(t *testing.T) {
	assert.True(t, IsSingleLine("one line"))
	assert.False(t, IsSingleLine("two\nlines"))
	assert.False(t, IsSingleLine("carriage\rreturn"))
}

func TestConsole_Error(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(WithWriter(&buf), WithNoColor(true))

	inner := errors.New("connection refused")
	c.Error(fmt.Errorf("dial: %w", fmt.Errorf("tcp: %w", inner)))

	assert.Equal(t, "dial: tcp: connection refused\n"+
		"  caused by: tcp: connection refused\n"+
		"  caused by: connection refused\n", buf.String())
}

func TestConsole_NestedColors(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(WithWriter(&buf), WithNoColor(true))

	c.Session(func(s *Session) {
		restore := s.Foreground(color.FgRed)
		s.Printf("red ")
		func() {
			defer s.Foreground(color.FgGreen)()
			s.Printf("green ")
		}()
		s.Printf("red again")
		restore()
		assert.Empty(t, s.colors)
	})
	assert.Equal(t, "red green red again", buf.String())
}

func TestConsole_Reprompt(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(WithWriter(&buf))

	c.Reprompt()
	assert.Empty(t, buf.String())

	c.SetReprompt(func(w io.Writer) {
		fmt.Fprint(w, "> ")
	})
	c.Reprompt()
	assert.Equal(t, "> ", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.AddScript("ok.hsh", 20*time.Millisecond, nil)
	f.AddScript("bad.hsh", 5*time.Millisecond, fmt.Errorf("fail: %w", errors.New("boom")))
	require.NoError(t, f.Flush(time.Second, stats.NewRecorder().Summary()))

	var got JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, JSONSummary{Total: 2, Passed: 1, Failed: 1}, got.Summary)
	require.Len(t, got.Scripts, 2)
	assert.Equal(t, "ok.hsh", got.Scripts[0].File)
	assert.Equal(t, float64(20), got.Scripts[0].Duration)
	assert.Equal(t, "fail: boom", got.Scripts[1].Error)
	assert.Equal(t, []string{"boom"}, got.Scripts[1].Causes)
	assert.Equal(t, float64(1000), got.Duration)
	require.NotNil(t, got.Requests)

	buf.Reset()
	f.Reset()
	require.NoError(t, f.Flush(0, nil))
	got = JSONOutput{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 0, got.Summary.Total)
	assert.Nil(t, got.Requests)
}
