// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/output"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

func KindValidator(value any) error {
	if _, ok := cachekey.ParseKind(value.(string)); !ok {
		return fmt.Errorf("must be one of %v", cachekey.Kinds)
	}
	return nil
}

var engineKinds = []string{"exec", "placeholder"}

func EngineKindValidator(value any) error {
	if !slices.Contains(engineKinds, value.(string)) {
		return fmt.Errorf("must be one of %v", engineKinds)
	}
	return nil
}

// LangValidator rejects tags that would not survive the filename round trip.
func LangValidator(value any) error {
	return cachekey.ValidateLang(value.(string))
}
