// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/meta"
)

const bashCompletionScript = `# bash completion for fragwiki
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_fragwiki()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "serve render edit scale ls prune cache identity completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local wiki="--wiki -w --cache-dir --cache-backend --sqlite-path --s3-bucket --s3-prefix --s3-region --s3-profile --s3-endpoint --lock-file --convert --git --email-domain --tldr"
    local ident="--id-header --name-header --cookie-name --cookie-key"

    case "$cmd" in
        serve)
            local opts="$wiki $ident --addr --watch --max-upload"
            ;;
        render)
            local opts="$wiki --out -O"
            ;;
        edit)
            local opts="$wiki --slug --file --message -m --image --user-id --user-name"
            ;;
        scale)
            local opts="$wiki --width --height"
            ;;
        ls)
            local opts="$wiki --color -c --filter -f --output -o --sort -s --titles -t"
            ;;
        prune)
            local opts="$wiki"
            ;;
        cache)
            local opts="clear purge $wiki --hours"
            ;;
        identity)
            local opts="sign --id --name $ident"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$wiki"
            ;;
    esac

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
            return 0
            ;;
        --cache-backend)
            COMPREPLY=( $(compgen -W "file sqlite s3" -- "$cur") )
            return 0
            ;;
        --wiki|-w|--cache-dir)
            COMPREPLY=( $(compgen -o dirnames -- "$cur") )
            return 0
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _fragwiki fragwiki
`

const zshCompletionScript = `#compdef fragwiki

_fragwiki() {
  local -a cmds
  cmds=(
    'serve:serve the wiki over http'
    'render:print the rendered wiki'
    'edit:create, update or delete a fragment'
    'scale:print the path of a scaled image'
    'ls:list fragments'
    'prune:delete unreferenced images'
    'cache:manage the derived artifact cache'
    'identity:identity cookie helpers'
    'completion:generate shell completion script'
  )

  local -a wiki
  wiki=(
  '(-w --wiki)'{-w,--wiki}'[wiki directory]:wiki:_directories'
  '--cache-dir[cache directory]:dir:_directories'
  '--cache-backend[cache backend]:backend:(file sqlite s3)'
  '--sqlite-path[sqlite cache database]:file:_files'
  '--s3-bucket[s3 cache bucket]:bucket'
  '--s3-prefix[s3 key prefix]:prefix'
  '--s3-region[s3 region]:region'
  '--s3-profile[aws profile]:profile'
  '--s3-endpoint[s3 endpoint]:url'
  '--lock-file[repository lock file]:file:_files'
  '--convert[convert binary]:file:_files'
  '--git[git binary]:file:_files'
  '--email-domain[commit email domain]:domain'
  '--tldr[show tldr page]'
  )

  local -a ident
  ident=(
  '--id-header[user id header]:header'
  '--name-header[user name header]:header'
  '--cookie-name[identity cookie]:name'
  '--cookie-key[identity cookie secret]:key'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'fragwiki commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    serve)
      _arguments -C $wiki $ident \
        '--addr[listen address]:addr' \
        '--watch[clear the cache on changes]' \
        '--max-upload[largest submission in MiB]:mib'
      ;;
    render)
      _arguments -C $wiki '(-O --out)'{-O,--out}'[output file]:file:_files'
      ;;
    edit)
      _arguments -C $wiki \
        '--slug[fragment]:slug' \
        '--file[new body]:file:_files' \
        '(-m --message)'{-m,--message}'[commit message]:message' \
        '*--image[image to import]:file:_files' \
        '--user-id[author id]:id' \
        '--user-name[author name]:name'
      ;;
    scale)
      _arguments -C $wiki '--width[width]:n' '--height[height]:n' '1:image:_files'
      ;;
    ls)
      _arguments -C $wiki \
        '(-c --color)'{-c,--color}'[enable colored text]' \
        '(-f --filter)'{-f,--filter}'[filters to apply]:filters' \
        '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)' \
        '(-s --sort)'{-s,--sort}'[sort columns]:columns' \
        '(-t --titles)'{-t,--titles}'[show titles]'
      ;;
    prune)
      _arguments -C $wiki
      ;;
    cache)
      _arguments '1: :((clear purge))' '--hours[age in hours]:hours' $wiki
      ;;
    identity)
      _arguments '1: :((sign))' '--id[user id]:id' '--name[display name]:name' $ident
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _fragwiki fragwiki
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	if shell == "" {
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	switch shell {
	case "bash":
		fmt.Fprint(os.Stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(os.Stdout, zshCompletionScript)
	default:
		fmt.Fprintln(os.Stderr, "usage: fragwiki completion [bash|zsh]")
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "fragwiki completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
