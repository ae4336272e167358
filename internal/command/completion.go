// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/staranto/tesscache/internal/meta"
	"github.com/urfave/cli/v3"
)

const bashCompletionScript = `# bash completion for tesscache
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_tesscache()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    local root="--cache --no-cache --cache-dir --engine --engine-kind --timeout --user-words"

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "ocr key resolve ls stats mirror wrap version completion $root --help --version" -- "$cur") )
        [[ ${#COMPREPLY[@]} -eq 0 ]] && COMPREPLY=( $(compgen -f -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--attrs -a --color -c --filter -f --output -o --sort -s --titles -t --tldr"
    local key="--lang -l --kind -k --tldr"

    case "$cmd" in
        ocr)
            local opts="$key"
            ;;
        key|resolve)
            local opts="$key --options"
            ;;
        ls)
            local opts="$common"
            ;;
        stats)
            local opts="$common --stale-after"
            ;;
        mirror)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "push pull" -- "$cur") )
                return 0
            fi
            local opts="--bucket --prefix --region --profile --endpoint --dry-run --tldr"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            COMPREPLY=( $(compgen -f -- "$cur") )
            return 0
            ;;
    esac

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
            return 0
            ;;
        --kind|-k)
            COMPREPLY=( $(compgen -W "txt hocr pdf" -- "$cur") )
            return 0
            ;;
    esac

    if [[ "$cur" == -* ]]; then
        COMPREPLY=( $(compgen -W "$opts $root" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -f -- "$cur") )
    return 0
}

complete -F _tesscache tesscache
`

const zshCompletionScript = `#compdef tesscache

_tesscache() {
  local -a cmds
  cmds=(
    'ocr:print recognized text using the cache'
    'key:print the cache filename for a file'
    'resolve:show which cache entry would serve a file'
    'ls:list cache entries'
    'stats:summarize the cache directory'
    'mirror:copy cache entries to or from S3'
    'wrap:run a tesseract command line through the cache'
    'version:print version info'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  local -a key
  key=(
  '(-l --lang)'{-l,--lang}'[language tag]:lang'
  '(-k --kind)'{-k,--kind}'[result kind]:kind:(txt hocr pdf)'
  '--tldr[show tldr page]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'tesscache commands' cmds
    _files
    return
  fi

  case $words[2] in
    ocr)
      _arguments -C $key '*:file:_files'
      ;;
    key|resolve)
      _arguments -C $key '--options[passthrough options]:options' ':file:_files'
      ;;
    ls)
      _arguments -C $common
      ;;
    stats)
      _arguments -C $common '--stale-after[temp file age]:duration'
      ;;
    mirror)
      _arguments -C \
        '1: :((push pull))' \
        '--bucket[bucket]:bucket' \
        '--prefix[key prefix]:prefix' \
        '--region[region]:region' \
        '--profile[profile]:profile' \
        '--endpoint[endpoint URL]:url' \
        '--dry-run[report only]'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _files
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _tesscache tesscache
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	w := stdout(cmd)
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(stderr(cmd), "usage: tesscache completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "tesscache completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
