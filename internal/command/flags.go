// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/cacheutil"
	"github.com/staranto/fragwiki/internal/config"
	"github.com/staranto/fragwiki/internal/identity"
	"github.com/staranto/fragwiki/internal/media"
	"github.com/staranto/fragwiki/internal/vcs"
)

var tldrFlag *cli.BoolFlag = &cli.BoolFlag{
	Name:        "tldr",
	Usage:       "show tldr page",
	Hidden:      !pathHas("tldr"),
	HideDefault: true,
}

// envFlag returns a string flag sourced from env, then ns.name and name in
// the config file at src.
func envFlag(ns string, src string, name string, env string, usage string, value string) *cli.StringFlag {
	flag := &cli.StringFlag{
		Name:    name,
		Usage:   usage,
		Sources: cli.NewValueSourceChain(cli.EnvVar(env)),
		Value:   value,
	}
	return NameSpacedValueChainFlagFromConfigFile(ns, src, flag)
}

// NewWikiFlags are the flags every command that touches the wiki takes.
func NewWikiFlags(ns string, src string) []cli.Flag {
	cacheDir, _ := cacheutil.Dir()

	wiki := envFlag(ns, src, "wiki", "FRAGWIKI_WIKI", "wiki directory (a git working tree)", "")
	wiki.Aliases = []string{"w"}

	backend := envFlag(ns, src, "cache-backend", "FRAGWIKI_CACHE_BACKEND", "cache backend: file, sqlite or s3", "file")
	backend.Validator = func(value string) error {
		return FlagValidators(value, JammedFlagValidator, BackendValidator)
	}

	return []cli.Flag{
		wiki,
		envFlag(ns, src, "cache-dir", "FRAGWIKI_CACHE_DIR", "cache directory", cacheDir),
		backend,
		envFlag(ns, src, "sqlite-path", "FRAGWIKI_SQLITE_PATH", "sqlite cache database (default <cache-dir>/cache.db)", ""),
		envFlag(ns, src, "s3-bucket", "FRAGWIKI_S3_BUCKET", "s3 cache bucket", ""),
		envFlag(ns, src, "s3-prefix", "FRAGWIKI_S3_PREFIX", "s3 cache key prefix", "fragwiki/"),
		envFlag(ns, src, "s3-region", "AWS_REGION", "s3 cache region", ""),
		envFlag(ns, src, "s3-profile", "AWS_PROFILE", "aws shared config profile", ""),
		envFlag(ns, src, "s3-endpoint", "FRAGWIKI_S3_ENDPOINT", "s3 compatible endpoint url", ""),
		envFlag(ns, src, "lock-file", "FRAGWIKI_LOCK_FILE", "repository lock file (default <cache-dir>/git-repo.lock)", ""),
		envFlag(ns, src, "convert", "FRAGWIKI_CONVERT", "ImageMagick convert binary", media.DefaultConvert),
		envFlag(ns, src, "git", "FRAGWIKI_GIT", "git binary", vcs.DefaultBinary),
		envFlag(ns, src, "email-domain", "FRAGWIKI_EMAIL_DOMAIN", "domain of commit author emails", identity.DefaultEmailDomain),
	}
}

// NewOutputFlags are the presentation flags of the listing commands.
func NewOutputFlags(ns string, src string) []cli.Flag {
	return []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".color", altsrc.StringSourcer(src)),
				yaml.YAML("color", altsrc.StringSourcer(src)),
			),
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".output", altsrc.StringSourcer(src)),
				yaml.YAML("output", altsrc.StringSourcer(src)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of columns to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".sort", altsrc.StringSourcer(src)),
			),
			Value: "slug",
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".titles", altsrc.StringSourcer(src)),
				yaml.YAML("titles", altsrc.StringSourcer(src)),
			),
		},
	}
}

// NewIdentityFlags configure how the server recognises users.
func NewIdentityFlags(ns string, src string) []cli.Flag {
	return []cli.Flag{
		envFlag(ns, src, "id-header", "FRAGWIKI_ID_HEADER", "trusted header carrying the user id", identity.DefaultIDHeader),
		envFlag(ns, src, "name-header", "FRAGWIKI_NAME_HEADER", "trusted header carrying the user name", identity.DefaultNameHeader),
		envFlag(ns, src, "cookie-name", "FRAGWIKI_COOKIE_NAME", "signed identity cookie", identity.DefaultCookie),
		envFlag(ns, src, "cookie-key", "FRAGWIKI_COOKIE_KEY", "secret for signed identity cookies", ""),
	}
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	if path == "" {
		return flag
	}

	if ns != "" {
		src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
		flag.Sources.Chain = append(flag.Sources.Chain, src)
	}

	src := yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}

// pathHas reports whether target is on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}

// settingsFromCommand collects the wiki flags into validated settings.
func settingsFromCommand(cmd *cli.Command) (config.Settings, error) {
	s := config.Settings{
		WikiDir:      cmd.String("wiki"),
		CacheDir:     cmd.String("cache-dir"),
		CacheBackend: cmd.String("cache-backend"),
		SQLitePath:   cmd.String("sqlite-path"),
		S3Bucket:     cmd.String("s3-bucket"),
		S3Prefix:     cmd.String("s3-prefix"),
		S3Region:     cmd.String("s3-region"),
		S3Profile:    cmd.String("s3-profile"),
		S3Endpoint:   cmd.String("s3-endpoint"),
		LockFile:     cmd.String("lock-file"),
		Convert:      cmd.String("convert"),
		Git:          cmd.String("git"),
		EmailDomain:  cmd.String("email-domain"),
		Listen:       cmd.String("addr"),
		IDHeader:     cmd.String("id-header"),
		NameHeader:   cmd.String("name-header"),
		CookieName:   cmd.String("cookie-name"),
		CookieKey:    cmd.String("cookie-key"),
	}.WithDefaults()
	return s, s.Validate()
}
