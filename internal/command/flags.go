// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os"
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/config"
	"github.com/staranto/tesscache/internal/engine"
	"github.com/staranto/tesscache/internal/invocation"
)

// NewRootFlags returns the flags that configure the cache and the engine. They
// live on the root command and are inherited by every subcommand, so they
// are also honored in wrap mode where the subcommand parses nothing. cfgPath
// is the config file backing the yaml sources.
func NewRootFlags(cfgPath string) []cli.Flag {
	src := altsrc.StringSourcer(cfgPath)

	return []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:  "cache",
			Usage: "use the result cache; --no-cache always runs the engine",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TESSCACHE_CACHE"),
				yaml.YAML("cache.enabled", src),
			),
			Value: true,
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "cache directory; TESSERACT_CACHE_DIR overrides it",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("cache.dir", src),
			),
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "OCR engine executable",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TESSCACHE_ENGINE"),
				yaml.YAML("engine.path", src),
			),
			Value: engine.DefaultPath,
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:  "engine-kind",
			Usage: "exec runs the engine; placeholder serves hits only and never stores",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TESSCACHE_ENGINE_KIND"),
				yaml.YAML("engine.kind", src),
			),
			Value: "exec",
			Validator: func(value string) error {
				return FlagValidators(value, EngineKindValidator)
			},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "limit for a single engine run; 0 waits forever",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TESSCACHE_TIMEOUT"),
				yaml.YAML("engine.timeout", src),
			),
		},
		&cli.StringFlag{
			Name:  "user-words",
			Usage: "word list passed to the engine for library-mode runs",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("engine.user_words", src),
			),
		},
	}
}

// NewOutputFlags returns the listing flags. params[0] is the command name,
// used to namespace config keys.
func NewOutputFlags(params ...string) (flags []cli.Flag) {
	src := altsrc.StringSourcer(config.Config.Source)
	ns := params[0]

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of attributes to include in results",
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".color", src),
				yaml.YAML("color", src),
			),
			Value: isTerminal(),
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format (text, json, raw, yaml)",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".output", src),
				yaml.YAML("output", src),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".sort", src),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".titles", src),
				yaml.YAML("titles", src),
			),
			Value: true,
		},
	}

	return
}

// NewLangFlag builds --lang, namespaced to the command in the config file.
func NewLangFlag(ns string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "lang",
		Aliases: []string{"l"},
		Usage:   "'+'-joined language tag, e.g. eng+deu",
		Sources: cli.NewValueSourceChain(
			yaml.YAML(ns+".lang", altsrc.StringSourcer(config.Config.Source)),
			yaml.YAML("lang", altsrc.StringSourcer(config.Config.Source)),
		),
		Value: invocation.DefaultLang,
		Validator: func(value string) error {
			return FlagValidators(value, JammedFlagValidator, LangValidator)
		},
	}
}

// NewKindFlag builds --kind.
func NewKindFlag(ns string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "result kind (txt, hocr, pdf)",
		Sources: cli.NewValueSourceChain(
			yaml.YAML(ns+".kind", altsrc.StringSourcer(config.Config.Source)),
		),
		Value: string(cachekey.KindText),
		Validator: func(value string) error {
			return FlagValidators(value, KindValidator)
		},
	}
}

// newTldrFlag builds --tldr, hidden unless tldr is installed.
func newTldrFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
}

// pathHas checks if the given executable is on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}

// isTerminal decides the default for --color.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
