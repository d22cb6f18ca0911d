package main

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// parseArgs turns "[name=][type:]value" command line arguments into driver
// arguments. Without a type the value is text; "null" is a null.
func parseArgs(args []string) ([]driver.NamedValue, error) {
	out := make([]driver.NamedValue, len(args))
	for i, arg := range args {
		var name string
		if n, rest, ok := strings.Cut(arg, "="); ok && n != "" && !strings.Contains(n, ":") {
			name, arg = n, rest
		}
		v, err := parseValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = driver.NamedValue{Name: name, Ordinal: i + 1, Value: v}
	}
	return out, nil
}

func parseValue(s string) (any, error) {
	if s == "null" {
		return nil, nil
	}
	typ, val, ok := strings.Cut(s, ":")
	if !ok {
		return s, nil
	}

	switch typ {
	case "text":
		return val, nil
	case "int":
		return strconv.ParseInt(val, 10, 64)
	case "float":
		return strconv.ParseFloat(val, 64)
	case "bool":
		return strconv.ParseBool(val)
	case "bytes":
		return hex.DecodeString(val)
	case "dec":
		return decimal.NewFromString(val)
	case "uuid":
		return uuid.Parse(val)
	case "time":
		return time.Parse(time.RFC3339Nano, val)
	default:
		return s, nil
	}
}
