// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/tesscache/internal/attrs"
)

// EnvDelim overrides the "," between filter expressions.
const EnvDelim = "TESSCACHE_FILTER_DELIM"

// filterRegex splits a filter expression into key, operator and target.
// Operators are one of = ^ ~ < > @ or /, optionally prefixed with '!'.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter is one parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// BuildFilters parses a delimited list of filter expressions such as
// "kind=hocr,size>1000". Malformed expressions are logged and dropped.
func BuildFilters(spec string) []Filter {
	if spec == "" {
		return nil
	}

	delim := ","
	if d, ok := os.LookupEnv(EnvDelim); ok {
		delim = d
	}

	var filters []Filter
	for _, expr := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(expr)
		if parts == nil {
			log.Error("invalid filter: " + expr)
			continue
		}
		op, negate := strings.CutPrefix(parts[2], "!")
		filters = append(filters, Filter{
			Key:     parts[1],
			Negate:  negate,
			Operand: op,
			Target:  parts[3],
		})
	}
	return filters
}

// FilterDataset returns the entries of candidates matching every filter in
// spec, projected onto attrs. Transforms are left to the output stage.
func FilterDataset(candidates gjson.Result, attrs attrs.AttrList, spec string) []map[string]interface{} {
	filters := BuildFilters(spec)

	var rows []map[string]interface{}
	for _, entry := range candidates.Array() {
		if !matches(entry, attrs, filters) {
			continue
		}
		row := make(map[string]interface{}, len(attrs))
		for _, attr := range attrs {
			row[attr.OutputKey] = entry.Get(attr.Key).Value()
		}
		rows = append(rows, row)
	}
	return rows
}

// lookupKey maps a filter key to an entry field. Attr output keys win over
// raw entry fields, so "--attrs size:bytes" can be filtered as bytes>100.
func lookupKey(entry gjson.Result, attrs attrs.AttrList, key string) string {
	for _, attr := range attrs {
		if attr.OutputKey == key {
			return attr.Key
		}
	}
	if entry.Get(key).Exists() {
		return key
	}
	return ""
}

// matches reports whether entry passes every filter. Unknown keys are
// reported and skipped.
func matches(entry gjson.Result, attrs attrs.AttrList, filters []Filter) bool {
	for _, filter := range filters {
		key := lookupKey(entry, attrs, filter.Key)
		if key == "" {
			msg := fmt.Sprintf("filter key not found: %s", filter.Key)
			log.Error(msg)
			fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
			continue
		}

		// Entry documents only carry strings (names, digests, timestamps),
		// numbers (size) and the languages list.
		var ok bool
		switch v := entry.Get(key).Value().(type) {
		case string:
			ok = checkStringOperand(v, filter)
		case float64:
			ok = checkNumericOperand(v, filter)
		case []any:
			ok = checkContainsOperand(v, filter)
		default:
			log.Errorf("cannot filter %s of type %T", key, v)
		}
		if !ok {
			return false
		}
	}
	return true
}

// checkContainsOperand handles '@' on a list field such as languages:
// languages@deu keeps entries that cover deu.
func checkContainsOperand(values []any, filter Filter) bool {
	if filter.Operand != "@" {
		log.Error("only '@' applies to lists, got: " + filter.Operand)
		return false
	}
	for _, item := range values {
		if item == filter.Target {
			return !filter.Negate
		}
	}
	return filter.Negate
}

// checkNumericOperand compares a number using =, > and <. != is "=" with
// Negate set.
func checkNumericOperand(value float64, filter Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Target), 64)
	if err != nil {
		log.Error("invalid numeric target: " + filter.Target)
		return false
	}

	switch filter.Operand {
	case "=":
		return (value == tgt) == !filter.Negate
	case ">":
		return (value > tgt) == !filter.Negate
	case "<":
		return (value < tgt) == !filter.Negate
	default:
		log.Error("unsupported numeric operand: " + filter.Operand)
		return false
	}
}

// checkStringOperand compares a string field. Timestamps are RFC 3339, so
// modified>2026-01-01 orders correctly.
func checkStringOperand(value string, filter Filter) bool {
	switch filter.Operand {
	case "=":
		return value == filter.Target == !filter.Negate
	case "~":
		return strings.EqualFold(value, filter.Target) == !filter.Negate
	case "^":
		return strings.HasPrefix(value, filter.Target) == !filter.Negate
	case ">":
		return value > filter.Target == !filter.Negate
	case "<":
		return value < filter.Target == !filter.Negate
	case "@":
		return strings.Contains(value, filter.Target) == !filter.Negate
	case "/":
		matched, err := regexp.MatchString(filter.Target, value)
		if err != nil {
			log.Error("invalid regex: " + filter.Target)
			return false
		}
		return matched == !filter.Negate
	default:
		log.Error("unsupported filtering operand: " + filter.Operand)
		return false
	}
}
