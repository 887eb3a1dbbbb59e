package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Default D-Bus coordinates of the keyboard's settings service.
const (
	DefaultBusName    = "io.glyphkey.Keyboard"
	DefaultObjectPath = "/io/glyphkey/Keyboard"
	dbusInterface     = "io.glyphkey.Keyboard.Bridge"
)

// DBus reaches the keyboard process over the D-Bus session bus, the way
// desktop input methods expose their configuration. Every channel method maps
// to a single Invoke(channel, method, argsJSON) -> resultJSON D-Bus call.
type DBus struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewDBus connects to the session bus and binds the keyboard object.
// Empty name or path select the defaults.
func NewDBus(name, path string) (*DBus, error) {
	if name == "" {
		name = DefaultBusName
	}
	if path == "" {
		path = DefaultObjectPath
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("bridge: connect session bus: %w", err)
	}
	return &DBus{conn: conn, obj: conn.Object(name, dbus.ObjectPath(path))}, nil
}

func (d *DBus) Invoke(ctx context.Context, ch Channel, method string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("bridge: encode %s/%s: %w", ch, method, err)
	}

	var out string
	call := d.obj.CallWithContext(ctx, dbusInterface+".Invoke", 0, string(ch), method, string(payload))
	if call.Err != nil {
		code := "UNAVAILABLE"
		var dbusErr dbus.Error
		if errors.As(call.Err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.UnknownMethod" {
			code = CodeNotImplemented
		}
		return nil, &CallError{Channel: ch, Method: method, Code: code, Message: call.Err.Error()}
	}
	if err := call.Store(&out); err != nil {
		return nil, &CallError{Channel: ch, Method: method, Code: "BAD_RESPONSE", Message: err.Error()}
	}
	if out == "" {
		return nil, nil
	}
	var res any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return nil, &CallError{Channel: ch, Method: method, Code: "BAD_RESPONSE", Message: err.Error()}
	}
	return res, nil
}

// Close releases the bus connection.
func (d *DBus) Close() error {
	return d.conn.Close()
}

var _ Bridge = (*DBus)(nil)
